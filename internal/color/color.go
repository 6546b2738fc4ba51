package color

import "fmt"

const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
)

func GreenString(s string) string {
	return fmt.Sprintf("%s%s%s", Green, s, Reset)
}

func YellowString(s string) string {
	return fmt.Sprintf("%s%s%s", Yellow, s, Reset)
}

func RedString(s string) string {
	return fmt.Sprintf("%s%s%s", Red, s, Reset)
}

package validateargs

import (
	"fmt"
	"strings"
)

// secretArgs carry credentials that leak into the process list when passed
// as command line arguments
var secretArgs = []string{"-sentry-dsn"}

const secretMessage = "should not be passed as a command line argument, use the config file or environment instead"

// Secrets checks if arguments carrying secrets have been used
func Secrets(args []string) error {
	var found []string

	for _, secret := range secretArgs {
		for _, arg := range args {
			if isFlag(arg, secret) {
				found = append(found, secret)
				break
			}
		}
	}

	if len(found) > 0 {
		return fmt.Errorf("%s %s", strings.Join(found, ", "), secretMessage)
	}

	return nil
}

// isFlag matches -name, --name and their =value forms
func isFlag(arg, name string) bool {
	arg = strings.TrimPrefix(arg, "-")
	name = strings.TrimPrefix(name, "-")

	return arg == name || strings.HasPrefix(arg, name+"=")
}

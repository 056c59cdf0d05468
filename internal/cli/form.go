package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// formFlag maps a command flag onto a draft field.
type formFlag struct {
	name  string
	key   string // JSON key passed to SetFormField
	usage string
}

func addFormFlags(cmd *cobra.Command, fields []formFlag) {
	for _, f := range fields {
		cmd.Flags().String(f.name, "", f.usage)
	}
}

// applyFormFlags sets the draft field of every flag given on the command
// line. Flags left out keep the draft's value, so an update only changes
// what was asked for.
func applyFormFlags(cmd *cobra.Command, fields []formFlag, set func(key string, value any) error) error {
	for _, f := range fields {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		value, err := cmd.Flags().GetString(f.name)
		if err != nil {
			return sysError(err)
		}
		if err := set(f.key, value); err != nil {
			return userError(fmt.Errorf("--%s: %w", f.name, err))
		}
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their JSON names, the names the flags
// map to.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkDraft validates a draft before it is submitted.
func checkDraft(draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return sysError(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return userError(errors.New(strings.Join(msgs, "; ")))
}

func parseIDArg(arg string) (types.ID, error) {
	id, err := types.ParseID(arg)
	if err != nil {
		return "", userError(fmt.Errorf("%w: %q", err, arg))
	}
	return id, nil
}

// confirm asks a yes/no question on the command's input. Anything but
// y or yes is a no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

var errNotConfirmed = errors.New("cancelled")

// deleteConfirmed reports whether a delete may go ahead: --yes was given or
// the user said so.
func deleteConfirmed(cmd *cobra.Command, what string, id types.ID) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	return confirm(cmd, fmt.Sprintf("Delete %s %s?", what, id))
}

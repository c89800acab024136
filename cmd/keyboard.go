package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/smazurov/kbdlight/internal/keyboard"
	"github.com/spf13/cobra"
)

// CreateGetCmd creates the get command, which prints the driver attributes.
func CreateGetCmd() *cobra.Command {
	var root string
	var asJSON bool

	getCmd := &cobra.Command{
		Use:          "get",
		Short:        "Print the current keyboard backlight state",
		Long:         `Read every attribute the keyboard driver exposes and print it, one role per line.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := openController(root)
			if err != nil {
				return err
			}
			state, err := ctrl.ReadState()
			if err != nil && len(state) == 0 {
				return fmt.Errorf("failed to read keyboard state: %w", err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), state)
			}
			printState(cmd.OutOrStdout(), state)
			return err
		},
	}

	getCmd.Flags().StringVar(&root, "root", keyboard.DefaultRoot, "Keyboard driver sysfs directory")
	getCmd.Flags().BoolVar(&asJSON, "json", false, "Print the state as JSON")

	return getCmd
}

// setFlags holds the raw values of the set command. Only flags the user
// passed end up in the applied state.
type setFlags struct {
	root       string
	state      string
	brightness int
	mode       string
	colors     [3]string
}

// CreateSetCmd creates the set command, which writes driver attributes directly.
func CreateSetCmd() *cobra.Command {
	var f setFlags

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change the keyboard backlight",
		Long: `Write one or more keyboard attributes. Values are validated before anything
is written. A running daemon picks the change up as an external edit.`,
		Example: `  kbdlight set --state on --brightness 128
  kbdlight set --mode breathe
  kbdlight set --left 0xff0000 --center "#00ff00" --right 0000ff`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desired := f.toState(cmd)
			if len(desired) == 0 {
				return errors.New("nothing to set, pass at least one of --state, --brightness, --mode, --left, --center, --right")
			}

			ctrl, err := openController(f.root)
			if err != nil {
				return err
			}
			if err := ctrl.ApplyState(desired); err != nil {
				return fmt.Errorf("failed to apply keyboard state: %w", err)
			}

			state, err := ctrl.ReadState()
			printState(cmd.OutOrStdout(), state)
			return err
		},
	}

	flags := setCmd.Flags()
	flags.StringVar(&f.root, "root", keyboard.DefaultRoot, "Keyboard driver sysfs directory")
	flags.StringVar(&f.state, "state", "", "Backlight power (on, off, true, false, 1, 0)")
	flags.IntVar(&f.brightness, "brightness", 0, fmt.Sprintf("Brightness, 0-%d", keyboard.MaxBrightness))
	flags.StringVar(&f.mode, "mode", "", "Effect mode by name or number")
	for _, p := range keyboard.Panels() {
		flags.StringVar(&f.colors[p], p.String(), "", fmt.Sprintf("Color of the %s zone (0xRRGGBB)", p))
	}

	return setCmd
}

func (f *setFlags) toState(cmd *cobra.Command) keyboard.State {
	changed := cmd.Flags().Changed
	state := keyboard.State{}

	if changed("state") {
		state[keyboard.RoleState.String()] = onOff(f.state)
	}
	if changed("brightness") {
		state[keyboard.RoleBrightness.String()] = strconv.Itoa(f.brightness)
	}
	if changed("mode") {
		state[keyboard.RoleMode.String()] = f.mode
	}
	for _, p := range keyboard.Panels() {
		if changed(p.String()) {
			state[p.Role().String()] = f.colors[p]
		}
	}
	return state
}

// onOff maps on/off to the boolean spellings the driver state accepts.
// Anything else is passed through for validation.
func onOff(v string) string {
	switch v {
	case "on":
		return "1"
	case "off":
		return "0"
	}
	return v
}

func openController(root string) (*keyboard.Controller, error) {
	driver, err := keyboard.NewSysfs(root)
	if err != nil {
		return nil, err
	}
	return keyboard.NewController(driver), nil
}

func printState(w io.Writer, state keyboard.State) {
	for _, role := range keyboard.Roles() {
		if v, ok := state[role.String()]; ok {
			fmt.Fprintf(w, "%-13s %s\n", role, v)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/kbdlight/internal/keyboard"
	"github.com/smazurov/kbdlight/internal/logging"
	"github.com/smazurov/kbdlight/internal/sysfswatch"
	"github.com/spf13/cobra"
)

// CreateWatchCmd creates the watch command, which prints every change the
// polling notifier reports for a path.
func CreateWatchCmd() *cobra.Command {
	var recursive bool
	var once bool
	var interval time.Duration

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Print changes under a sysfs path",
		Long: `Poll a file or directory and print the changed paths of every notification.
Without a path the keyboard driver directory is watched.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keyboard.DefaultRoot
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot watch %s: %w", path, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchPath(ctx, cmd, path, recursive, interval, once)
		},
	}

	watchCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch the whole subtree")
	watchCmd.Flags().DurationVarP(&interval, "interval", "i", sysfswatch.DefaultInterval, "Polling interval")
	watchCmd.Flags().BoolVar(&once, "once", false, "Exit after the first notification")

	return watchCmd
}

func watchPath(ctx context.Context, cmd *cobra.Command, path string, recursive bool, interval time.Duration, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	n := sysfswatch.New(logging.GetLogger("sysfswatch"), sysfswatch.WithName("cli"), sysfswatch.WithInterval(interval))
	defer n.Stop()

	n.SetCallback(func() {
		stamp := time.Now().Format(time.TimeOnly)
		for _, changed := range n.LastChanges() {
			fmt.Fprintf(out, "%s %s\n", stamp, changed)
		}
		if once {
			cancel()
		}
	})

	if err := n.Watch(path, recursive); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s every %s\n", path, interval)

	<-ctx.Done()
	return nil
}

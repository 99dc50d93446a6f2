package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/outline-backup/internal/platform"
)

var (
	autostartEvents string
	autostartDir    string
)

// NewAutostartCmd creates the autostart command group.
func NewAutostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the listener at login",
	}
	cmd.PersistentFlags().StringVar(&autostartDir, "dir", "", "autostart directory (XDG platforms only)")

	install := &cobra.Command{
		Use:   "install",
		Short: "Start the listener at login",
		Long: `Register "outline-backup listen" to run at login.

On Windows this adds a value under HKCU\Software\Microsoft\Windows\CurrentVersion\Run.
Elsewhere it writes an XDG autostart desktop entry.`,
		RunE: runAutostartInstall,
	}
	install.Flags().StringVar(&autostartEvents, "events", "", "pointer event source passed to listen")

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop starting the listener at login",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := autostartManager()
			if err != nil {
				return err
			}
			if err := m.Uninstall(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Autostart removed.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the autostart registration",
		RunE:  runAutostartStatus,
	}

	cmd.AddCommand(install, uninstall, status)
	return cmd
}

func autostartManager() (platform.AutostartManager, error) {
	m := platform.NewAutostartManager(autostartDir)
	if !m.IsSupported() {
		return nil, fmt.Errorf("autostart is not supported on this platform")
	}
	return m, nil
}

// listenArgs returns the arguments registered for login.
func listenArgs() ([]string, error) {
	args := []string{"listen"}
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}
	if autostartEvents != "" {
		args = append(args, "--events", autostartEvents)
	}
	return args, nil
}

func runAutostartInstall(cmd *cobra.Command, args []string) error {
	m, err := autostartManager()
	if err != nil {
		return err
	}

	listen, err := listenArgs()
	if err != nil {
		return err
	}

	if err := m.Install(cmd.Context(), platform.AutostartOptions{Args: listen}); err != nil {
		return err
	}

	status, err := m.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Autostart installed: %s\n", status.Location)
	return nil
}

func runAutostartStatus(cmd *cobra.Command, args []string) error {
	m, err := autostartManager()
	if err != nil {
		return err
	}

	status, err := m.Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !status.Installed {
		fmt.Fprintf(out, "Autostart: not installed (%s)\n", status.Location)
		return nil
	}
	fmt.Fprintf(out, "Autostart: installed (%s)\n", status.Location)
	fmt.Fprintf(out, "Command: %s\n", status.Command)
	return nil
}

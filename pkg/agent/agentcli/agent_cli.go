package agentcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/neuroplastio/neio-turbo/internal/configsvc"
	"github.com/neuroplastio/neio-turbo/internal/hidsvc"
	"github.com/neuroplastio/neio-turbo/internal/mapping"
	"github.com/neuroplastio/neio-turbo/internal/xinput"
	"github.com/neuroplastio/neio-turbo/pkg/agent"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "neio-turbo"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type agentProvider func() *agent.Agent

func NewRootCmd(configDir string) *cobra.Command {
	v := agent.NewViper(configDir)
	agentCmd := &cobra.Command{
		Use:           "neio-turbo",
		Short:         "Neuroplast.io Turbo",
		Long:          `Neuroplast.io Turbo maps keyboard, mouse and controller inputs to repeated output actions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var a *agent.Agent
	agentProvider := func() *agent.Agent {
		return a
	}
	flags := agentCmd.PersistentFlags()
	flags.String("data-dir", v.GetString("data_dir"), "data directory")
	flags.String("mappings", v.GetString("mappings"), "mapping config file")
	flags.String("log-level", v.GetString("log_level"), "log level (debug, info, warn, error)")
	flags.Duration("poll-interval", v.GetDuration("poll_interval"), "controller poll interval")
	bindFlags := func() error {
		for key, flag := range map[string]string{
			"data_dir":      "data-dir",
			"mappings":      "mappings",
			"log_level":     "log-level",
			"poll_interval": "poll-interval",
		} {
			if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
		return nil
	}
	agentCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(); err != nil {
			return err
		}
		cfg, err := agent.LoadConfig(v)
		if err != nil {
			return err
		}
		a, err = agent.NewAgent(cfg)
		return err
	}
	agentCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a == nil {
			return nil
		}
		return a.Close()
	}
	agentCmd.AddCommand(NewRun(agentProvider))
	agentCmd.AddCommand(NewListDevices(agentProvider))
	agentCmd.AddCommand(NewCheckConfig(v, bindFlags))
	agentCmd.AddCommand(NewCapture(agentProvider))
	agentCmd.AddCommand(NewTeach(agentProvider))
	return agentCmd
}

func NewRun(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the turbo engine",
		Long:  `Run the keyboard hook, the controller poller and the HID service until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return agent().Run(cmd.Context())
		},
	}
}

type deviceList struct {
	Controllers []xinput.ControllerInfo  `json:"controllers"`
	HID         []hidsvc.HidInputDevice `json:"hid"`
}

func NewListDevices(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List input devices",
		Long:  `List connected controllers and every HID device seen so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list deviceList
			var err error
			list.Controllers, err = agent().Controllers()
			if err != nil {
				return err
			}
			hid, err := agent().HID()
			if err != nil {
				return err
			}
			if err := hid.Refresh(); err != nil {
				return err
			}
			list.HID, err = hid.ListInputDevices()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

// NewCheckConfig replaces the root pre-run: validating a file needs no agent.
func NewCheckConfig(v *viper.Viper, bindFlags func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config [path]",
		Short: "Validate a mapping config",
		Long:  `Parse every trigger and target of a mapping config and report the first error.`,
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			agentCfg, err := agent.LoadConfig(v)
			if err != nil {
				return err
			}
			path := agentCfg.MappingsPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, tables, err := configsvc.LoadMappings(path)
			var cfgErr *mapping.ConfigError
			if errors.As(err, &cfgErr) {
				return fmt.Errorf("%s: %w", path, cfgErr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d mappings, %d triggers, switch key %q\n",
				path, len(cfg.Mappings), len(tables.Mappings), cfg.SwitchKey)
			return nil
		},
	}
}

func NewCapture(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Print the name of the next input",
		Long:  `Wait for a key, mouse button or controller combo and print it in mapping syntax.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), "Press a key, a mouse button or a controller combo...")
			dev, err := agent().Capture(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dev.String())
			return nil
		},
	}
}

func NewTeach(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "teach <addr>",
		Short: "Learn a generic HID button",
		Long:  `Watch the raw reports of a HID device and print the first button that is pressed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := hidsvc.ParseAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Press a button on the device...")
			dev, err := agent().Teach(cmd.Context(), addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dev.String())
			return nil
		},
	}
}

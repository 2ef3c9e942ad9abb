package devicectl

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command { return buildRootCmdWith(&Config{LogLvl: "info"}) }

// buildRootCmdWith constructs a Cobra command tree wired to a deviced client.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "devicectl",
		Short:         "Control client for a running deviced instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("addr", cfg.Addr, "deviced base URL (defaults DEVICED_ADDR or http://127.0.0.1:8080)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults DEVICECTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}
	client := func() *Client { return NewClient(cfg.Addr) }

	statusCmd := &cobra.Command{Use: "status", Short: "Show device memory and resident networks", RunE: func(cmd *cobra.Command, args []string) error {
		st, err := client().Status()
		if err != nil {
			return err
		}
		fmt.Printf("memory: %d used / %d max (%d available)\n", st.UsedMemory, st.MaximumMemory, st.AvailableMemory)
		for _, n := range st.Networks {
			fmt.Printf("  %-24s cost=%d in_flight=%d draining=%v\n", n.Name, n.CostBytes, n.InFlight, n.Draining)
		}
		return nil
	}}
	root.AddCommand(statusCmd)

	deviceCmd := &cobra.Command{Use: "device", Short: "Show static device capability numbers", RunE: func(cmd *cobra.Command, args []string) error {
		caps, err := client().Device()
		if err != nil {
			return err
		}
		for k, v := range caps {
			fmt.Printf("%s: %v\n", k, v)
		}
		return nil
	}}
	root.AddCommand(deviceCmd)

	// networks group
	networksCmd := &cobra.Command{Use: "networks", Short: "Manage network residency", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("networks requires a subcommand: list|add|evict")
	}}
	networksList := &cobra.Command{Use: "list", Short: "List networks in the manifest catalog", Example: "  devicectl networks list", RunE: func(cmd *cobra.Command, args []string) error {
		nets, err := client().ListNetworks()
		if err != nil {
			return err
		}
		for _, n := range nets {
			fmt.Printf("%-24s backend=%s activations=%d weights=%d cost=%d\n",
				n.Name, n.Backend, n.ActivationsSize, n.WeightsSize, n.CostBytes)
		}
		return nil
	}}
	networksAdd := &cobra.Command{Use: "add <name>...", Short: "Make networks resident as one batch", Example: "  devicectl networks add resnet50 recv_func", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().AddNetworks(args); err != nil {
			return err
		}
		info("added %s", strings.Join(args, ", "))
		return nil
	}}
	networksEvict := &cobra.Command{Use: "evict <name>", Short: "Evict a resident network", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().EvictNetwork(args[0]); err != nil {
			return err
		}
		info("evicted %s", args[0])
		return nil
	}}
	networksCmd.AddCommand(networksList, networksAdd, networksEvict)
	root.AddCommand(networksCmd)

	// run
	var runInputs []string
	var runOutDir string
	runCmd := &cobra.Command{Use: "run <name>", Short: "Execute one request against a resident network",
		Example: "  devicectl run resnet50 --input image=@cat.bin\n  devicectl run resnet50 --input image=AQIDBA==", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseInputs(runInputs)
			if err != nil {
				return err
			}
			resp, outputs, err := client().Run(args[0], inputs)
			if err != nil {
				return err
			}
			debug("run %d (request %s) completed", resp.RunID, resp.RequestID)
			for ph, data := range outputs {
				if runOutDir != "" {
					path := filepath.Join(runOutDir, ph+".bin")
					if err := os.WriteFile(path, data, 0o644); err != nil {
						return err
					}
					info("wrote %s (%d bytes)", path, len(data))
					continue
				}
				fmt.Printf("%s: %s\n", ph, base64.StdEncoding.EncodeToString(data))
			}
			return nil
		}}
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Placeholder binding as name=base64 or name=@file (repeatable)")
	runCmd.Flags().StringVar(&runOutDir, "output-dir", "", "Write outputs as <dir>/<placeholder>.bin instead of printing")
	root.AddCommand(runCmd)

	// peer-address
	var channelID int64
	peerCmd := &cobra.Command{Use: "peer-address", Short: "Resolve the peer-to-peer receive address", RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client().PeerAddress(channelID)
		if err != nil {
			return err
		}
		fmt.Printf("channel %d -> 0x%x\n", resp.ChannelID, resp.Address)
		return nil
	}}
	peerCmd.Flags().Int64Var(&channelID, "channel", 0, "Channel identifier")
	root.AddCommand(peerCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// parseInputs turns name=base64 / name=@file pairs into raw bindings.
func parseInputs(pairs []string) (map[string][]byte, error) {
	inputs := make(map[string][]byte, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --input %q, want name=base64 or name=@file", pair)
		}
		if strings.HasPrefix(value, "@") {
			data, err := os.ReadFile(value[1:])
			if err != nil {
				return nil, fmt.Errorf("read input %s: %w", name, err)
			}
			inputs[name] = data
			continue
		}
		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("input %s is not valid base64: %w", name, err)
		}
		inputs[name] = data
	}
	return inputs, nil
}

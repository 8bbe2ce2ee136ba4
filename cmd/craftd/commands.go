package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/craftd/craftd/internal/instance"
	"github.com/craftd/craftd/pkg/client"
)

// CreateFlags holds flags for the create command.
type CreateFlags struct {
	Name      string
	CoreType  string
	MCVersion string
	JavaPath  string
	RAMMinMB  int
	RAMMaxMB  int
	JVMArgs   []string
}

// UpdateFlags holds flags for the update command.
type UpdateFlags struct {
	Name     string
	JavaPath string
	RAMMinMB int
	RAMMaxMB int
}

// apiClient builds a REST client from the persistent API flags and verifies
// the daemon answers before the command proceeds.
func apiClient(api *APIFlags) (*client.Client, error) {
	cfg := client.DefaultConfig()
	if api.URL != "" {
		cfg.BaseURL = api.URL
	}
	if api.Timeout != "" {
		d, err := time.ParseDuration(api.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --api-timeout: %w", err)
		}
		cfg.Timeout = d
	}
	c := client.New(cfg)
	if !c.IsReachable(context.Background()) {
		return nil, fmt.Errorf("daemon not reachable at %s - start it first with 'craftd serve'", cfg.BaseURL)
	}
	return c, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func createCreateCommand(api *APIFlags) *cobra.Command {
	f := &CreateFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new server instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Name == "" {
				return fmt.Errorf("--name is required")
			}
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			inst, err := c.Create(cmd.Context(), instance.CreateRequest{
				Name:      f.Name,
				CoreType:  f.CoreType,
				MCVersion: f.MCVersion,
				JavaPath:  f.JavaPath,
				RAMMinMB:  f.RAMMinMB,
				RAMMaxMB:  f.RAMMaxMB,
				JVMArgs:   f.JVMArgs,
			})
			if err != nil {
				return err
			}
			printJSON(inst)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "instance name (becomes the directory name)")
	cmd.Flags().StringVar(&f.CoreType, "core", "", "server core type, e.g. vanilla, paper")
	cmd.Flags().StringVar(&f.MCVersion, "version", "", "Minecraft version")
	cmd.Flags().StringVar(&f.JavaPath, "java", "", "java executable for this instance")
	cmd.Flags().IntVar(&f.RAMMinMB, "ram-min", 0, "initial heap in MB (0 uses the default)")
	cmd.Flags().IntVar(&f.RAMMaxMB, "ram-max", 0, "maximum heap in MB (0 uses the default)")
	cmd.Flags().StringSliceVar(&f.JVMArgs, "jvm-arg", nil, "extra JVM argument (repeatable)")
	return cmd
}

func createListCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all server instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			insts, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(insts)
			return nil
		},
	}
}

func createStatusCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show one server instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			inst, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(inst)
			return nil
		},
	}
}

func createUpdateCommand(api *APIFlags) *cobra.Command {
	f := &UpdateFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update instance settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			req := instance.UpdateRequest{ID: args[0]}
			if cmd.Flags().Changed("name") {
				req.Name = &f.Name
			}
			if cmd.Flags().Changed("java") {
				req.JavaPath = &f.JavaPath
			}
			if cmd.Flags().Changed("ram-min") {
				req.RAMMinMB = &f.RAMMinMB
			}
			if cmd.Flags().Changed("ram-max") {
				req.RAMMaxMB = &f.RAMMaxMB
			}
			inst, err := c.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			printJSON(inst)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "new instance name")
	cmd.Flags().StringVar(&f.JavaPath, "java", "", "java executable for this instance")
	cmd.Flags().IntVar(&f.RAMMinMB, "ram-min", 0, "initial heap in MB")
	cmd.Flags().IntVar(&f.RAMMaxMB, "ram-max", 0, "maximum heap in MB")
	return cmd
}

func createStartCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start a server instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			if err := c.Start(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("starting")
			return nil
		},
	}
}

func createStopCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Gracefully stop a server instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			if err := c.Stop(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("stopping")
			return nil
		},
	}
}

func createDeleteCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a server instance and its directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func createSendCommand(api *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <id> <command...>",
		Short: "Send a console command to a running server",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient(api)
			if err != nil {
				return err
			}
			if err := c.SendCommand(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Println("sent")
			return nil
		},
	}
}

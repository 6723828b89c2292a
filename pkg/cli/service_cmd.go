package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"s3bridge/internal/domain"
	"s3bridge/internal/registry"
)

// Service registrations live in an env-format file consumed by the
// deployment tooling: one SERVICE_<NAME>=<json> line per service, plus the
// broker's other variables, which these commands preserve.
func newServiceCmd(output *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage service registrations",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", ".env", "registration env file")

	cmd.AddCommand(
		newServiceListCmd(&file, output),
		newServiceShowCmd(&file, output),
		newServiceAddCmd(&file),
		newServiceRemoveCmd(&file),
	)
	return cmd
}

func newServiceListCmd(file, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered services",
		RunE: func(_ *cobra.Command, _ []string) error {
			vars, err := readEnvFile(*file)
			if err != nil {
				return err
			}
			reg := registry.New(func() map[string]string { return vars }, nil)
			services := reg.List()

			if *output == "json" {
				out := make(map[string]*domain.ServiceRegistration, len(services))
				for _, s := range services {
					out[s.Name] = s
				}
				return printJSON(out)
			}
			if len(services) == 0 {
				fmt.Println("No services registered.")
				return nil
			}
			for _, s := range services {
				restriction := "unrestricted"
				if s.Restricted() {
					restriction = "restricted to " + strings.Join(s.RestrictedUsers, ", ")
				}
				fmt.Printf("%-20s %s (%s)\n", s.Name, s.RoleARN, restriction)
			}
			return nil
		},
	}
}

func newServiceShowCmd(file, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one service registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			vars, err := readEnvFile(*file)
			if err != nil {
				return err
			}
			reg := registry.New(func() map[string]string { return vars }, nil)
			s := reg.Resolve(args[0])
			if s == nil {
				return fmt.Errorf("Unknown service: %s", args[0])
			}
			if *output == "json" {
				return printJSON(s)
			}
			fmt.Printf("Name:    %s\n", s.Name)
			fmt.Printf("Role:    %s\n", s.RoleARN)
			fmt.Printf("Buckets: %s\n", strings.Join(s.BucketPatterns, ", "))
			if s.Restricted() {
				fmt.Printf("Users:   %s\n", strings.Join(s.RestrictedUsers, ", "))
			} else {
				fmt.Println("Users:   unrestricted")
			}
			return nil
		},
	}
}

func newServiceAddCmd(file *string) *cobra.Command {
	var (
		role    string
		buckets []string
		users   []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a service registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if role == "" {
				return fmt.Errorf("--role is required")
			}
			if !strings.HasPrefix(role, "arn:aws:iam::") {
				return fmt.Errorf("role %q is not an IAM role ARN", role)
			}

			reg := domain.ServiceRegistration{
				RoleARN:        role,
				BucketPatterns: buckets,
			}
			if len(users) > 0 {
				reg.RestrictedUsers = users
			}
			value, err := json.Marshal(reg)
			if err != nil {
				return err
			}

			vars, err := readEnvFile(*file)
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			if vars == nil {
				vars = map[string]string{}
			}
			vars[registry.KeyPrefix+strings.ToUpper(name)] = string(value)
			if err := writeEnvFile(*file, vars); err != nil {
				return err
			}
			fmt.Printf("Registered service %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "IAM role ARN the service federates into")
	cmd.Flags().StringArrayVar(&buckets, "bucket", nil, "bucket pattern (repeatable)")
	cmd.Flags().StringArrayVar(&users, "restrict-user", nil, "restrict access to this user (repeatable)")
	return cmd
}

func newServiceRemoveCmd(file *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a service registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			vars, err := readEnvFile(*file)
			if err != nil {
				return err
			}
			key := registry.KeyPrefix + strings.ToUpper(name)
			if _, ok := vars[key]; !ok {
				return fmt.Errorf("Unknown service: %s", name)
			}
			delete(vars, key)
			if err := writeEnvFile(*file, vars); err != nil {
				return err
			}
			fmt.Printf("Removed service %s\n", name)
			return nil
		},
	}
}

// readEnvFile parses KEY=VALUE lines. Blank lines and #-comments are skipped.
func readEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// writeEnvFile renders the variables sorted by key.
func writeEnvFile(path string, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, vars[k])
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

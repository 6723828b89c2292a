package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"s3bridge/pkg/s3bridge"
)

func newCredentialsCmd(endpoint, output *string) *cobra.Command {
	var (
		service    string
		exportEnv  bool
		cookieFile string
	)

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Fetch temporary AWS credentials for a service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if service == "" {
				return fmt.Errorf("--service is required")
			}

			opts := []s3bridge.Option{}
			if *endpoint != "" {
				opts = append(opts, s3bridge.WithDeployment(s3bridge.StaticEndpoint(*endpoint)))
			}
			if cookieFile != "" {
				opts = append(opts, s3bridge.WithCookieSource(s3bridge.FileCookieSource{Path: cookieFile}))
			}

			provider := s3bridge.NewAuthProvider(service, opts...)
			creds, err := provider.GetCredentials(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case exportEnv:
				fmt.Printf("export AWS_ACCESS_KEY_ID=%s\n", creds.AccessKeyID)
				fmt.Printf("export AWS_SECRET_ACCESS_KEY=%s\n", creds.SecretAccessKey)
				fmt.Printf("export AWS_SESSION_TOKEN=%s\n", creds.SessionToken)
			case *output == "json":
				return printJSON(creds)
			default:
				fmt.Printf("AccessKeyId:     %s\n", creds.AccessKeyID)
				fmt.Printf("SecretAccessKey: %s\n", creds.SecretAccessKey)
				fmt.Printf("SessionToken:    %s\n", creds.SessionToken)
				fmt.Printf("Expiration:      %s\n", creds.Expiration.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "registered service name")
	cmd.Flags().BoolVar(&exportEnv, "export", false, "print credentials as shell export statements")
	cmd.Flags().StringVar(&cookieFile, "cookie-file", "", "path to the Midway cookie jar")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"s3bridge/internal/domain"
	"s3bridge/internal/midway"
	"s3bridge/pkg/s3bridge"
)

func newWhoamiCmd(output *string) *cobra.Command {
	var cookieFile string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the caller identity in the local Midway session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var source s3bridge.CookieSource = s3bridge.DefaultCookieSource()
			if cookieFile != "" {
				source = s3bridge.FileCookieSource{Path: cookieFile}
			}

			header, err := source.Cookies(cmd.Context())
			if err != nil {
				return err
			}

			extractor := midway.NewExtractor(&domain.AuthorizationPolicy{}, nil)
			caller, err := extractor.Extract(header)
			if err != nil {
				return err
			}

			if *output == "json" {
				return printJSON(map[string]string{"user": caller.String()})
			}
			fmt.Println(caller)
			return nil
		},
	}

	cmd.Flags().StringVar(&cookieFile, "cookie-file", "", "path to the Midway cookie jar")
	return cmd
}

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize publishing accounts",
	}
	authCmd.AddCommand(newPinterestAuthCommand(ctx))
	authCmd.AddCommand(newYouTubeAuthCommand(ctx))
	authCmd.AddCommand(newInstagramAuthCommand(ctx))
	return authCmd
}

func newPinterestAuthCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pinterest",
		Short: "Pinterest OAuth flow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the Pinterest consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			authURL, err := clients.Pinterest.AuthURL(uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			token, err := clients.Pinterest.ExchangeCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path, err := clients.Pinterest.SaveToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinterest access token saved to %s\n", path)
			return nil
		},
	})

	return cmd
}

func newYouTubeAuthCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "youtube",
		Short: "YouTube OAuth flow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the Google consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			authURL, err := clients.YouTube.AuthURL(uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code and print the refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			token, err := clients.YouTube.Exchange(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if token.RefreshToken == "" {
				fmt.Fprintln(out, "No refresh token returned. Revoke the app's access and authorize again.")
				return nil
			}
			fmt.Fprintf(out, "YOUTUBE_REFRESH_TOKEN=%s\n", token.RefreshToken)
			return nil
		},
	})

	return cmd
}

func newInstagramAuthCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instagram",
		Short: "Instagram Graph API token flow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the Facebook consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			authURL, err := clients.Instagram.AuthURL(uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	})

	var pageID string

	exchange := &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code and store long-lived credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := ctx.ensureClients()
			if err != nil {
				return err
			}
			shortToken, err := clients.Instagram.ExchangeCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return mintInstagram(cmd, ctx, shortToken, pageID)
		},
	}
	exchange.Flags().StringVar(&pageID, "page", "", "Facebook page id to use when several are connected")

	mint := &cobra.Command{
		Use:   "mint <short-token>",
		Short: "Upgrade a short-lived user token and store long-lived credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintInstagram(cmd, ctx, args[0], pageID)
		},
	}
	mint.Flags().StringVar(&pageID, "page", "", "Facebook page id to use when several are connected")

	cmd.AddCommand(exchange, mint)
	return cmd
}

func mintInstagram(cmd *cobra.Command, ctx *commandContext, shortToken, pageID string) error {
	clients, err := ctx.ensureClients()
	if err != nil {
		return err
	}
	creds, err := clients.Instagram.MintCredentials(cmd.Context(), shortToken, pageID)
	if err != nil {
		return err
	}
	path, err := clients.Instagram.SaveCredentials(creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Instagram account %s (page %s) saved to %s\n", creds.UserID, creds.PageID, path)
	return nil
}

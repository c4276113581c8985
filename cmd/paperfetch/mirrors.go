// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mirrorsCmd = &cobra.Command{
	Use:   "mirrors",
	Short: "Discover and list mirror sites",
	Long: `Mirrors fetches the mirror directory page and prints the mirrors found, in
the order the fetcher tries them. When discovery fails the configured mirror
list is printed instead.`,
	RunE: runMirrors,
}

func init() {
	mirrorsCmd.Flags().String("mirror-directory", "", "page listing mirrors (default https://sci-hub.now.sh/)")
	mirrorsCmd.Flags().String("proxy", "", "outbound proxy URL (http, https, socks5)")

	rootCmd.AddCommand(mirrorsCmd)
}

func runMirrors(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	proxies, err := newProxyRotator()
	if err != nil {
		return err
	}
	reg := newRegistry(cmd.Context(), proxies, false)

	refreshErr := reg.Refresh(cmd.Context())
	if refreshErr != nil {
		fmt.Fprintf(w, "discovery failed: %v\n", refreshErr)
		fmt.Fprintln(w, "configured mirrors:")
	}

	mirrors := reg.Mirrors()
	if len(mirrors) == 0 {
		fmt.Fprintln(w, "No mirrors available.")
	}
	for i, m := range mirrors {
		fmt.Fprintf(w, "%2d. %-40s  %s\n", i+1, m.URL, m.Status)
	}
	return refreshErr
}

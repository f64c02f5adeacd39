// pdplctl is the operator CLI for the verisyntra API. Exit codes: 0 success,
// 2 invalid input, 3 forbidden, 4 not found, 5 internal error, 6 dependency
// unavailable.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	server string
	token  string
}

func main() {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "pdplctl",
		Short:         "Command-line client for the verisyntra PDPL compliance API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.server, "server",
		envOr("PDPLCTL_SERVER", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&flags.token, "token",
		os.Getenv("PDPLCTL_TOKEN"), "bearer token (env PDPLCTL_TOKEN)")

	root.AddCommand(
		newAuthCmd(&flags),
		newClassifyCmd(&flags),
		newNormalizeCmd(&flags),
		newCompanyCmd(&flags),
		newScanCmd(&flags),
		newROPACmd(&flags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			os.Exit(apiErr.ExitCode())
		}
		os.Exit(6)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (g *globalFlags) client() *client {
	return newClient(strings.TrimRight(g.server, "/"), g.token)
}

// printJSON renders any API response for the terminal.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAuthCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Obtain and revoke API tokens"}

	var password string
	login := &cobra.Command{
		Use:   "login <username>",
		Short: "Exchange credentials for a token pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PDPLCTL_PASSWORD")
			}
			var out map[string]any
			err := g.client().do("POST", "/v1/auth/token", map[string]string{
				"username": args[0],
				"password": password,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	login.Flags().StringVar(&password, "password", "", "password (env PDPLCTL_PASSWORD)")

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the current token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("POST", "/v1/auth/revoke", map[string]string{"token": g.token}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	cmd.AddCommand(login, revoke)
	return cmd
}

func newClassifyCmd(g *globalFlags) *cobra.Command {
	var modelType, language string
	var metadata bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify Vietnamese compliance text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			err := g.client().do("POST", "/classify", map[string]any{
				"text":             args[0],
				"model_type":       modelType,
				"language":         language,
				"include_metadata": metadata,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&modelType, "model", "legal_basis", "model type")
	cmd.Flags().StringVar(&language, "language", "vi", "response language: vi or en")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "include processing metadata")
	return cmd
}

func newNormalizeCmd(g *globalFlags) *cobra.Command {
	var companies, persons, locations bool
	cmd := &cobra.Command{
		Use:   "normalize <text>",
		Short: "Normalize entity mentions without classifying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			err := g.client().do("POST", "/normalize", map[string]any{
				"text":                args[0],
				"normalize_companies": companies,
				"normalize_persons":   persons,
				"normalize_locations": locations,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&companies, "companies", true, "normalize company mentions")
	cmd.Flags().BoolVar(&persons, "persons", false, "normalize person names")
	cmd.Flags().BoolVar(&locations, "locations", false, "normalize locations")
	return cmd
}

func newCompanyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "company", Short: "Manage the company registry"}

	var name, industry, region string
	var aliases []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a company (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			err := g.client().do("POST", "/admin/companies/add", map[string]any{
				"name":     name,
				"aliases":  aliases,
				"industry": industry,
				"region":   region,
			}, &out)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	add.Flags().StringVar(&name, "name", "", "canonical company name")
	add.Flags().StringVar(&industry, "industry", "", "industry")
	add.Flags().StringVar(&region, "region", "", "region: north, central or south")
	add.Flags().StringArrayVar(&aliases, "alias", nil, "alias (repeatable)")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("industry")
	_ = add.MarkFlagRequired("region")

	var rmName, rmIndustry, rmRegion string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a company (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("name", rmName)
			q.Set("industry", rmIndustry)
			q.Set("region", rmRegion)
			var out map[string]any
			if err := g.client().do("DELETE", "/admin/companies/remove?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	remove.Flags().StringVar(&rmName, "name", "", "canonical company name")
	remove.Flags().StringVar(&rmIndustry, "industry", "", "industry")
	remove.Flags().StringVar(&rmRegion, "region", "", "region")
	_ = remove.MarkFlagRequired("name")
	_ = remove.MarkFlagRequired("industry")
	_ = remove.MarkFlagRequired("region")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search companies by name or alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			q := url.Values{}
			q.Set("query", args[0])
			if err := g.client().do("GET", "/admin/companies/search?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	list := &cobra.Command{
		Use:   "list <industry>",
		Short: "List companies in an industry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/admin/companies/list/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Registry totals by industry and region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/admin/companies/stats", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	reload := &cobra.Command{
		Use:   "reload",
		Short: "Reload the snapshot from disk (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("POST", "/admin/companies/reload", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var exportOut string
	export := &cobra.Command{
		Use:   "export",
		Short: "Download the canonical snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return g.client().download("/admin/companies/export", w)
		},
	}
	export.Flags().StringVar(&exportOut, "out", "", "write to file instead of stdout")

	cmd.AddCommand(add, remove, search, list, stats, reload, export)
	return cmd
}

func newScanCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "scan", Short: "Run and inspect data-inventory scans"}

	var requestFile, template string
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a scan from a JSON request file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(requestFile)
			if err != nil {
				return err
			}
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				return fmt.Errorf("parse %s: %w", requestFile, err)
			}
			if template != "" {
				body["template"] = template
			}
			var out map[string]any
			if err := g.client().do("POST", "/scan", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	start.Flags().StringVar(&requestFile, "file", "", "JSON file with the scan sources")
	start.Flags().StringVar(&template, "template", "", "column-filter template name")
	_ = start.MarkFlagRequired("file")

	status := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show a scan job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/scans/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <job_id>",
		Short: "Cancel a running scan or delete a finished one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("DELETE", "/scans/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	templates := &cobra.Command{
		Use:   "templates",
		Short: "List column-filter templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/filter-templates", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	cmd.AddCommand(start, status, cancel, templates)
	return cmd
}

func newROPACmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "ropa", Short: "Generate and manage ROPA documents"}

	var profileFile, language string
	var formats []string
	generate := &cobra.Command{
		Use:   "generate <tenant_id>",
		Short: "Assemble and export the record of processing activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(profileFile)
			if err != nil {
				return err
			}
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				return fmt.Errorf("parse %s: %w", profileFile, err)
			}
			body["language"] = language
			body["formats"] = formats
			var out map[string]any
			if err := g.client().do("POST", "/"+url.PathEscape(args[0])+"/ropa/generate", body, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	generate.Flags().StringVar(&profileFile, "profile", "", "JSON file with controller and dpo")
	generate.Flags().StringVar(&language, "language", "vi", "document language: vi or en")
	generate.Flags().StringArrayVar(&formats, "format", []string{"json"}, "export format (repeatable)")
	_ = generate.MarkFlagRequired("profile")

	list := &cobra.Command{
		Use:   "list <tenant_id>",
		Short: "List generated documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/"+url.PathEscape(args[0])+"/ropa/list", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	get := &cobra.Command{
		Use:   "get <tenant_id> <ropa_id>",
		Short: "Show document metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			path := "/" + url.PathEscape(args[0]) + "/ropa/" + url.PathEscape(args[1])
			if err := g.client().do("GET", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var format, downloadOut string
	download := &cobra.Command{
		Use:   "download <tenant_id> <ropa_id>",
		Short: "Download one exported artefact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := os.Stdout
			if downloadOut != "" {
				f, err := os.Create(downloadOut)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			path := "/" + url.PathEscape(args[0]) + "/ropa/" + url.PathEscape(args[1]) +
				"/download?format=" + url.QueryEscape(format)
			return g.client().download(path, w)
		},
	}
	download.Flags().StringVar(&format, "format", "json", "artefact format")
	download.Flags().StringVar(&downloadOut, "out", "", "write to file instead of stdout")

	remove := &cobra.Command{
		Use:   "delete <tenant_id> <ropa_id>",
		Short: "Delete a document and all its artefacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			path := "/" + url.PathEscape(args[0]) + "/ropa/" + url.PathEscape(args[1])
			if err := g.client().do("DELETE", path, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	preview := &cobra.Command{
		Use:   "preview <tenant_id>",
		Short: "Check submission readiness without generating files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := g.client().do("GET", "/"+url.PathEscape(args[0])+"/ropa/preview", nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	cmd.AddCommand(generate, list, get, download, remove, preview)
	return cmd
}

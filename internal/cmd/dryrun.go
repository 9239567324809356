package cmd

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/dryrun"
)

func isDryRun(cmd *cobra.Command) bool {
	return dryrun.IsEnabled(cmd.Context())
}

// previewRequest reports what req would do instead of sending it.
func previewRequest(cmd *cobra.Command, client *api.Client, action string, req *api.Request, warnings ...string) error {
	p, err := buildPreview(client, action, req, warnings...)
	if err != nil {
		return err
	}
	return writePreviews(cmd, p)
}

func buildPreview(client *api.Client, action string, req *api.Request, warnings ...string) (*dryrun.Preview, error) {
	target, err := client.BuildURL(req)
	if err != nil {
		return nil, err
	}
	p := &dryrun.Preview{
		Method:   string(req.Method),
		URL:      target,
		Action:   action,
		Warnings: warnings,
	}
	if req.Method != api.MethodGet {
		for _, f := range req.Params.Fields() {
			p.Fields = append(p.Fields, dryrun.Field{Name: f.Name, Value: previewValue(f.Value)})
		}
	}
	if req.ClientSecret != "" {
		p.Headers = append(p.Headers, "Client-Secret: "+maskSecret(req.ClientSecret))
	}
	if req.Auth != nil {
		p.Headers = append(p.Headers, "Authorization: Basic ("+req.Auth.Username+")")
	}
	return p, nil
}

func writePreviews(cmd *cobra.Command, previews ...*dryrun.Preview) error {
	if isJSON(cmd) {
		return printJSON(cmd, map[string]any{"dry_run": true, "requests": previews})
	}
	for _, p := range previews {
		p.Write(stdout(cmd))
	}
	return nil
}

func previewValue(v any) string {
	if file, ok := v.(api.FileValue); ok {
		return fmt.Sprintf("@%s (%s)", file.FileName, bytefmt.ByteSize(uint64(file.Len())))
	}
	return fmt.Sprint(v)
}

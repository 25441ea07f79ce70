package pipeline

import (
	"context"

	"motconv/internal/config"
	"motconv/processing/export"
)

// ResolveExport returns exportFile when one was given, otherwise downloads
// the project export with the credentials from the environment.
func ResolveExport(ctx context.Context, cfg *config.Config, exportFile string, creds config.Credentials) (string, error) {
	if exportFile != "" {
		return exportFile, nil
	}

	if err := cfg.ValidateFetch(creds); err != nil {
		return "", err
	}

	c := cfg.Clone()
	client := export.NewClient(creds.URL, creds.APIKey)
	return client.FetchJSON(ctx, c.LabelStudio.ProjectID, c.Exports.ExportDir)
}

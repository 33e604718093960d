package drive

import (
	"context"
	"fmt"
	"io"

	"hr_records/internal/config"
	"hr_records/internal/retry"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// PDFMimeType is the only content type listed from storage folders.
const PDFMimeType = "application/pdf"

// File is a (name, identifier) pair from a storage folder.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Client struct {
	service    *drive.Service
	resilience config.ResilienceConfig
}

func NewClient(ctx context.Context, resilience config.ResilienceConfig, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}, opts...)
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{
		service:    service,
		resilience: resilience,
	}, nil
}

// FolderQuery selects the non-trashed PDFs directly under folderID.
func FolderQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", folderID, PDFMimeType)
}

// ListPDFs returns every PDF in the folder, following pagination.
func (c *Client) ListPDFs(ctx context.Context, folderID string) ([]File, error) {
	log.Debug().Str("folder_id", folderID).Msg("Listing folder PDFs")

	files, err := retry.WithRetry(ctx, c.resilience.DriveRequest, func(ctx context.Context) ([]File, error) {
		var files []File
		err := c.service.Files.List().
			Q(FolderQuery(folderID)).
			Spaces("drive").
			Fields("nextPageToken, files(id, name)").
			PageSize(1000).
			Pages(ctx, func(page *drive.FileList) error {
				for _, f := range page.Files {
					files = append(files, File{ID: f.Id, Name: f.Name})
				}
				return nil
			})
		if err != nil {
			return nil, fmt.Errorf("failed to list files in folder %s: %w", folderID, err)
		}
		return files, nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("folder_id", folderID).Int("files", len(files)).Msg("Retrieved folder PDFs")
	return files, nil
}

// Download fetches a file's content.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	return retry.WithRetry(ctx, c.resilience.DriveRequest, func(ctx context.Context) ([]byte, error) {
		resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
		}
		defer resp.Body.Close()

		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
		}
		log.Debug().Str("file_id", fileID).Int("bytes", len(content)).Msg("Downloaded file")
		return content, nil
	})
}

// WebViewLink returns the browser link for a file, or "" when the file has
// none.
func (c *Client) WebViewLink(ctx context.Context, fileID string) (string, error) {
	return retry.WithRetry(ctx, c.resilience.DriveRequest, func(ctx context.Context) (string, error) {
		f, err := c.service.Files.Get(fileID).Fields("webViewLink").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to get metadata for file %s: %w", fileID, err)
		}
		return f.WebViewLink, nil
	})
}

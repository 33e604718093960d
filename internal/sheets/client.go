package sheets

import (
	"context"
	"fmt"

	"hr_records/internal/config"
	"hr_records/internal/retry"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Client struct {
	service    *sheets.Service
	resilience config.ResilienceConfig
}

func NewClient(ctx context.Context, resilience config.ResilienceConfig, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:    service,
		resilience: resilience,
	}, nil
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	return retry.WithRetry(ctx, c.resilience.SheetRead, func(ctx context.Context) ([][]interface{}, error) {
		resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet: %w", err)
		}
		return resp.Values, nil
	})
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := retry.WithRetry(ctx, c.resilience.SheetWrite, func(ctx context.Context) (struct{}, error) {
		_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to update range: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

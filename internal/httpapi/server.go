// Package httpapi serves the staff-facing JSON API: sheet reads enriched
// with PDF references, PDF redirects, PDF emailing and the processed-record
// log.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"hr_records/internal/config"
	"hr_records/internal/drive"
	"hr_records/internal/notifications"
	"hr_records/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SheetService reads spreadsheet ranges and marks rows as sent on the
// service's own spreadsheet.
type SheetService interface {
	SpreadsheetID() string
	ReadValues(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	MarkSent(ctx context.Context, sheetName, column string, rowIndex int) error
}

type FileService interface {
	ListPDFs(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	WebViewLink(ctx context.Context, fileID string) (string, error)
}

type Mailer interface {
	SendEmail(ctx context.Context, email notifications.Email) (string, error)
}

type ProcessedRecords interface {
	Recent(ctx context.Context, limit int) ([]store.ProcessedRecord, error)
}

type Dependencies struct {
	Sheets    SheetService
	Files     FileService
	Mailer    Mailer
	Processed ProcessedRecords
}

type Options struct {
	TrackedSheets  []config.TrackedSheet
	AllowedOrigins []string
}

type Server struct {
	deps   Dependencies
	opts   Options
	engine *gin.Engine
}

func New(deps Dependencies, opts Options) *Server {
	s := &Server{deps: deps, opts: opts}
	s.engine = s.buildEngine()
	return s
}

// Handler exposes the router for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger())
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/", s.root)
	r.POST("/send_pdf_email", s.sendPDFEmail)
	r.GET("/pdf/:file_id", s.pdfLink)
	r.GET("/processed-records", s.processedRecords)
	for _, sheet := range s.opts.TrackedSheets {
		r.GET(sheet.Route, s.sheetData(sheet))
	}
	return r
}

func respondWithError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

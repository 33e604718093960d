package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"hr_records/internal/config"
	"hr_records/internal/notifications"
	"hr_records/internal/records"
	"hr_records/internal/resolution"
	"hr_records/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultSubject  = "Documento adjunto"
	defaultBodyText = "Adjunto el documento solicitado."
	defaultFilename = "document.pdf"

	defaultRecentLimit = 50
	maxRecentLimit     = 500

	emptySheetMessage = "No se encontraron datos en la hoja de cálculo."
)

type sendPDFEmailRequest struct {
	PDFDriveID         string `json:"pdf_drive_id" binding:"required"`
	RecipientEmail     string `json:"recipient_email" binding:"required"`
	Subject            string `json:"subject"`
	BodyText           string `json:"body_text"`
	Filename           string `json:"filename"`
	SheetRowNumber     int    `json:"sheet_row_number" binding:"required"`
	SheetName          string `json:"sheet_name" binding:"required"`
	UpdateColumnLetter string `json:"update_column_letter" binding:"required"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Test root endpoint reached successfully!"})
}

func (s *Server) sendPDFEmail(c *gin.Context) {
	// absent optional fields keep these defaults
	req := sendPDFEmailRequest{
		Subject:  defaultSubject,
		BodyText: defaultBodyText,
		Filename: defaultFilename,
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ctx := c.Request.Context()

	content, err := s.deps.Files.Download(ctx, req.PDFDriveID)
	if err != nil {
		log.Error().Err(err).Str("file_id", req.PDFDriveID).Msg("Failed to download PDF")
		respondWithError(c, http.StatusInternalServerError, fmt.Sprintf("Error al enviar el email: %v", err))
		return
	}

	emailID, err := s.deps.Mailer.SendEmail(ctx, notifications.Email{
		To:          []string{req.RecipientEmail},
		Subject:     req.Subject,
		HTML:        notifications.TextToHTML(req.BodyText),
		Attachments: []notifications.Attachment{{Filename: req.Filename, Content: content}},
	})
	if err != nil {
		log.Error().Err(err).Str("file_id", req.PDFDriveID).Msg("Failed to send PDF email")
		respondWithError(c, http.StatusInternalServerError, fmt.Sprintf("Error al enviar el email: %v", err))
		return
	}

	if err := s.deps.Sheets.MarkSent(ctx, req.SheetName, req.UpdateColumnLetter, req.SheetRowNumber); err != nil {
		log.Error().
			Err(err).
			Str("email_id", emailID).
			Str("sheet", req.SheetName).
			Int("row", req.SheetRowNumber).
			Msg("Email sent but failed to mark row as sent")
		respondWithError(c, http.StatusInternalServerError, fmt.Sprintf("Error al enviar el email: %v", err))
		return
	}

	log.Info().
		Str("email_id", emailID).
		Str("sheet", req.SheetName).
		Int("row", req.SheetRowNumber).
		Msg("Sent PDF email and marked row")
	c.JSON(http.StatusOK, gin.H{
		"message":  "Email enviado con éxito y hoja actualizada!",
		"email_id": emailID,
	})
}

func (s *Server) pdfLink(c *gin.Context) {
	fileID := c.Param("file_id")

	link, err := s.deps.Files.WebViewLink(c.Request.Context(), fileID)
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("Failed to get PDF view link")
		respondWithError(c, http.StatusInternalServerError,
			fmt.Sprintf("Error al acceder al PDF: %v. Asegúrate de que el ID es válido y tienes permisos de acceso.", err))
		return
	}
	if link == "" {
		respondWithError(c, http.StatusNotFound,
			"No se encontró un enlace de visualización para el archivo PDF o el archivo no es accesible.")
		return
	}
	c.Redirect(http.StatusSeeOther, link)
}

// sheetData serves one tracked sheet enriched with PDF references from its
// folder. The folder listing and the sheet are fetched fresh per request.
func (s *Server) sheetData(sheet config.TrackedSheet) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		spreadsheetID := s.deps.Sheets.SpreadsheetID()
		readRange := sheet.ReadRange()
		if sheet.AllowQueryOverride {
			spreadsheetID = c.DefaultQuery("spreadsheet_id", spreadsheetID)
			readRange = c.DefaultQuery("range_name", readRange)
		}

		files, err := s.deps.Files.ListPDFs(ctx, sheet.FolderID)
		if err != nil {
			s.sheetDataError(c, sheet, err)
			return
		}
		rows, err := s.deps.Sheets.ReadValues(ctx, spreadsheetID, readRange)
		if err != nil {
			s.sheetDataError(c, sheet, err)
			return
		}

		if len(rows) == 0 {
			c.JSON(http.StatusOK, gin.H{
				"headers": []string{},
				"data":    []records.Record{},
				"message": emptySheetMessage,
			})
			return
		}

		headers, data := records.Enrich(rows, resolution.NewFileDirectory(files))
		log.Debug().
			Str("sheet", sheet.Name).
			Int("rows", len(data)).
			Int("files", len(files)).
			Msg("Served sheet data")
		c.JSON(http.StatusOK, gin.H{"headers": headers, "data": data})
	}
}

func (s *Server) sheetDataError(c *gin.Context, sheet config.TrackedSheet, err error) {
	log.Error().Err(err).Str("sheet", sheet.Name).Msg("Failed to load sheet data")
	respondWithError(c, http.StatusInternalServerError, fmt.Sprintf(
		"Error al procesar datos de Google Sheets o Drive: %v. "+
			"Verifica que las credenciales son válidas, los IDs de hoja/carpeta son correctos "+
			"y la cuenta de servicio tiene acceso.", err))
}

func (s *Server) processedRecords(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondWithError(c, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxRecentLimit)
	}

	recent, err := s.deps.Processed.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list processed records")
		respondWithError(c, http.StatusInternalServerError, fmt.Sprintf("Error al obtener los registros procesados: %v", err))
		return
	}
	if recent == nil {
		recent = []store.ProcessedRecord{}
	}
	c.JSON(http.StatusOK, recent)
}

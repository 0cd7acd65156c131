package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ledongthuc/pdf"

	"interview-backend/internal/models"
	"interview-backend/internal/storage"
)

const MaxCVBytes = 10 << 20

type CVStore interface {
	Create(ctx context.Context, cv *models.CandidateCV) error
	Latest(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, error)
}

type CVService struct {
	repo  CVStore
	files storage.FileStore
}

func NewCVService(repo CVStore, files storage.FileStore) *CVService {
	return &CVService{repo: repo, files: files}
}

// Upload stores the file, extracts its text and records it as the user's
// latest CV.
func (s *CVService) Upload(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*models.CandidateCV, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" && ext != ".docx" && ext != ".txt" {
		return nil, &ValidationError{Fields: map[string]string{"file": "Only PDF, DOCX and TXT files are supported"}}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"file": "File is empty"}}
	}
	if len(data) > MaxCVBytes {
		return nil, &ValidationError{Fields: map[string]string{"file": "File exceeds the 10MB limit"}}
	}

	text, err := ExtractText(ext, data)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"file": fmt.Sprintf("Could not read file: %v", err)}}
	}

	contentType := storage.ContentType(ext)
	key := fmt.Sprintf("cv/%s/%s%s", userID, uuid.NewString(), ext)
	location, err := s.files.Save(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store CV: %w", err)
	}

	cv := &models.CandidateCV{
		UserID:      userID,
		Filename:    filepath.Base(filename),
		MimeType:    contentType,
		StorageType: s.files.Type(),
		Location:    location,
		TextContent: text,
	}
	if err := s.repo.Create(ctx, cv); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *CVService) Latest(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, error) {
	cv, err := s.repo.Latest(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "No CV uploaded yet"}
	}
	return cv, err
}

// Open streams the stored file behind the user's latest CV.
func (s *CVService) Open(ctx context.Context, userID uuid.UUID) (*models.CandidateCV, io.ReadCloser, error) {
	cv, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cv.StorageType != s.files.Type() {
		return nil, nil, &NotFoundError{Message: "CV file is no longer available"}
	}
	rc, err := s.files.Open(ctx, cv.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CV file: %w", err)
	}
	return cv, rc, nil
}

// ExtractText pulls plain text out of a pdf, docx or txt file.
func ExtractText(ext string, data []byte) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt":
		return extractTXT(data)
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("unsupported file type for text extraction: %s", ext)
	}
}

func extractTXT(data []byte) (string, error) {
	text := normalizeExtractedText(string(data))
	if text == "" {
		return "", fmt.Errorf("text file is empty")
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return text, nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}

	if len(documentXML) == 0 {
		return "", fmt.Errorf("docx document.xml not found")
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return "", fmt.Errorf("no extractable text found in docx")
	}
	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// paragraphs and breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf bytes.Buffer
	emptyCount := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}

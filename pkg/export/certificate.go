package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Certificate formats.
const (
	FormatText = "txt"
	FormatPDF  = "pdf"
)

// DateLayout is the issue date layout printed on certificates.
const DateLayout = "2006-01-02"

// CertificateData holds the values printed on a transfer certificate.
type CertificateData struct {
	StudentID   string
	StudentName string
	RollNumber  string
	College     string
	Caste       string
	IssuedOn    time.Time
	VerifyURL   string
}

// Document is a rendered certificate ready for upload.
type Document struct {
	Extension   string
	ContentType string
	Content     []byte
}

// CertificateRenderer renders certificates in a fixed format.
type CertificateRenderer struct {
	format string
}

// NewCertificateRenderer returns a renderer for format, falling back to plain text.
func NewCertificateRenderer(format string) *CertificateRenderer {
	if strings.ToLower(format) == FormatPDF {
		return &CertificateRenderer{format: FormatPDF}
	}
	return &CertificateRenderer{format: FormatText}
}

// Format reports the file extension produced by the renderer.
func (r *CertificateRenderer) Format() string {
	return r.format
}

// Render produces the certificate document.
func (r *CertificateRenderer) Render(data CertificateData) (*Document, error) {
	if r.format == FormatPDF {
		content, err := RenderCertificatePDF(data)
		if err != nil {
			return nil, err
		}
		return &Document{Extension: FormatPDF, ContentType: "application/pdf", Content: content}, nil
	}
	return &Document{Extension: FormatText, ContentType: "text/plain; charset=utf-8", Content: RenderCertificateText(data)}, nil
}

// RenderCertificateText renders the plain text certificate.
func RenderCertificateText(data CertificateData) []byte {
	var b strings.Builder
	b.WriteString("TRANSFER CERTIFICATE\n")
	b.WriteString("===================\n\n")
	fmt.Fprintf(&b, "Student ID: %s\n", data.StudentID)
	fmt.Fprintf(&b, "Name: %s\n", data.StudentName)
	fmt.Fprintf(&b, "Roll Number: %s\n", data.RollNumber)
	fmt.Fprintf(&b, "College: %s\n", data.College)
	fmt.Fprintf(&b, "Caste: %s\n\n", data.Caste)
	fmt.Fprintf(&b, "Date of Issue: %s\n", data.IssuedOn.Format(DateLayout))
	if data.VerifyURL != "" {
		fmt.Fprintf(&b, "Verify: %s\n", data.VerifyURL)
	}
	return []byte(b.String())
}

// RenderCertificatePDF renders a single page certificate. A QR code of the
// verification URL is placed at the bottom when one is provided.
func RenderCertificatePDF(data CertificateData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "TRANSFER CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(10)

	rows := [][2]string{
		{"Student ID", data.StudentID},
		{"Name", data.StudentName},
		{"Roll Number", data.RollNumber},
		{"College", data.College},
		{"Caste", data.Caste},
		{"Date of Issue", data.IssuedOn.Format(DateLayout)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(50, 9, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 9, tr(row[1]), "", 1, "L", false, 0, "")
	}

	if data.VerifyURL != "" {
		png, err := qrcode.Encode(data.VerifyURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode verification qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
		pdf.Ln(12)
		y := pdf.GetY()
		pdf.ImageOptions("verify-qr", 20, y, 40, 40, false, opts, 0, "")
		pdf.SetXY(65, y+15)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(125, 5, "Scan to verify this certificate", "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

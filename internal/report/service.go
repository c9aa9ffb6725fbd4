package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/signintech/gopdf"

	"voicedesk/internal/conversation"
)

// Common locations across Alpine and Debian images.
var defaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type Service struct {
	fontPaths []string
}

func NewService() *Service {
	return &Service{fontPaths: defaultFontPaths}
}

// Render lays out the analysis and the full transcript as a PDF and
// returns the document bytes.
func (s *Service) Render(analysis string, history []conversation.Message) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, errors.Wrap(fontErr, "load PDF font (install ttf-dejavu)")
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Conversation Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Analysis:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	writeWrapped(&pdf, analysis)
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Transcript:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, m := range history {
		speaker := "Customer"
		if m.Role == "assistant" {
			speaker = "Assistant"
		}
		writeWrapped(&pdf, fmt.Sprintf("%s: %s", speaker, m.Content))
		pdf.Br(5)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "write PDF")
	}
	return buf.Bytes(), nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string) {
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			pdf.Br(12)
			continue
		}
		lines, _ := pdf.SplitText(para, 500)
		for _, l := range lines {
			if pdf.GetY() > 800 {
				pdf.AddPage()
			}
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
}

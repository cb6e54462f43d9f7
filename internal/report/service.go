package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"medical-triage-agent/internal/dialogue"
	"medical-triage-agent/internal/triage"
)

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service renders a concluded session as a PDF and hands it to the
// reviewing doctor over Telegram. It is a downstream collaborator: the
// conversation core never waits on it.
type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
}

func NewService(tg TelegramClient, doctorChatID int64) *Service {
	return &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
	}
}

func (s *Service) SendRecommendation(ctx context.Context, sess dialogue.Session, rec triage.Recommendation) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// DejaVuSans covers Latin and Arabic ranges. Try the common
	// distro locations.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return err
	}
	pdf.Cell(nil, "Triage Report (AI Assistant)")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", sess.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Outcome: %s after %d turns", sess.State, sess.Turns))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, "Reported symptoms:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return err
	}
	if len(sess.Belief.Observations) == 0 {
		pdf.Cell(nil, "- none recognized")
		pdf.Br(12)
	}
	for _, id := range observationOrder(sess.Belief) {
		obs := sess.Belief.Observations[id]
		writeLines(&pdf, fmt.Sprintf("- %s: %s (confidence %.2f)",
			strings.ReplaceAll(id, "_", " "), obs.Polarity, obs.Confidence))
	}
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, "Assessment:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return err
	}
	if rec.Conclusive {
		writeLines(&pdf, fmt.Sprintf("%s (probability %.2f)", strings.ReplaceAll(rec.DiseaseID, "_", " "), rec.Probability))
		writeLines(&pdf, rec.Description)
		for _, p := range rec.Precautions {
			writeLines(&pdf, "- precaution: "+p)
		}
		for _, t := range rec.Tests {
			writeLines(&pdf, "- test: "+t)
		}
	} else {
		writeLines(&pdf, rec.Advice)
	}
	pdf.Br(10)
	for _, c := range rec.Candidates {
		writeLines(&pdf, fmt.Sprintf("- candidate %s: %.2f", strings.ReplaceAll(c.DiseaseID, "_", " "), c.Probability))
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	fileName := fmt.Sprintf("triage_%s.pdf", sess.ID)
	return s.tgClient.SendDocument(s.doctorChatID, buf.Bytes(), fileName)
}

func writeLines(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}

func observationOrder(b triage.BeliefState) []string {
	ids := make([]string, 0, len(b.Observations))
	for id := range b.Observations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

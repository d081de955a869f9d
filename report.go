package quizmaker

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ReportInput is everything the exporter needs from a completed quiz
type ReportInput struct {
	Topic          string
	Difficulty     Difficulty
	Score          int
	TotalQuestions int
	Percentage     float64
	Grade          Grade
	Questions      []Question
	Answers        []int
	Date           time.Time
}

// OptionMark classifies one option of a question in the report
type OptionMark int

const (
	MarkNone OptionMark = iota
	MarkCorrectChosen
	MarkCorrectMissed
	MarkWrongChosen
)

// MarkOption annotates option j of q given the user's answer.
func MarkOption(q Question, j, answer int) OptionMark {
	switch {
	case j == q.CorrectAnswer && j == answer:
		return MarkCorrectChosen
	case j == q.CorrectAnswer:
		return MarkCorrectMissed
	case j == answer:
		return MarkWrongChosen
	}
	return MarkNone
}

// Note is the text printed next to the option.
func (m OptionMark) Note() string {
	switch m {
	case MarkCorrectChosen:
		return "Your answer - Correct!"
	case MarkCorrectMissed:
		return "Correct answer"
	case MarkWrongChosen:
		return "Your answer - Incorrect"
	}
	return ""
}

// QuestionsPerPage is how many question blocks go on a page before a forced break.
const QuestionsPerPage = 3

const (
	reportMarginX    = 0.75
	reportMarginY    = 0.5
	reportLineHeight = 0.22
)

type rgb struct{ r, g, b int }

var (
	colorTitle   = rgb{0x1f, 0x77, 0xb4}
	colorHeading = rgb{0x2c, 0x3e, 0x50}
	colorLabelBg = rgb{0xec, 0xf0, 0xf1}
	colorBlack   = rgb{0, 0, 0}
	colorGreen   = rgb{0x1e, 0x88, 0x3a}
	colorRed     = rgb{0xc0, 0x39, 0x2b}
	colorBlue    = rgb{0x1f, 0x5f, 0xbf}
	colorOrange  = rgb{0xe6, 0x7e, 0x22}
)

func gradeColor(g Grade) rgb {
	switch g {
	case GradeExcellent:
		return colorGreen
	case GradeGood:
		return colorBlue
	}
	return colorOrange
}

func markColor(m OptionMark) rgb {
	switch m {
	case MarkCorrectChosen, MarkCorrectMissed:
		return colorGreen
	case MarkWrongChosen:
		return colorRed
	}
	return colorBlack
}

// ExportReport renders a completed quiz as a Letter-size PDF.
func ExportReport(in ReportInput) ([]byte, error) {
	pdf, err := renderReport(in)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &ExportError{Kind: ErrRender, Err: err}
	}
	return buf.Bytes(), nil
}

func checkReportInput(in ReportInput) error {
	if len(in.Questions) != len(in.Answers) {
		return fmt.Errorf("%d questions but %d answers", len(in.Questions), len(in.Answers))
	}
	if in.TotalQuestions != len(in.Questions) {
		return fmt.Errorf("total of %d questions but %d given", in.TotalQuestions, len(in.Questions))
	}
	if in.Score < 0 || in.Score > in.TotalQuestions {
		return fmt.Errorf("score %d out of range for %d questions", in.Score, in.TotalQuestions)
	}
	switch in.Grade {
	case GradeExcellent, GradeGood, GradeKeepLearning:
	default:
		return fmt.Errorf("unknown grade %q", in.Grade)
	}
	for i, q := range in.Questions {
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("question %d has %d options", i+1, len(q.Options))
		}
	}
	return nil
}

func renderReport(in ReportInput) (*fpdf.Fpdf, error) {
	if err := checkReportInput(in); err != nil {
		return nil, &ExportError{Kind: ErrRender, Detail: err.Error()}
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(reportMarginX, reportMarginY, reportMarginX)
	pdf.SetAutoPageBreak(true, reportMarginY)
	pdf.SetTitle("Quiz Results: "+in.Topic, true)
	pdf.SetCreator("quizmaker", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*reportMarginX

	setColor := func(c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

	pdf.AddPage()

	// Title
	pdf.SetFont("Helvetica", "B", 24)
	setColor(colorTitle)
	pdf.CellFormat(contentW, 0.45, "Quiz Results", "", 1, "C", false, 0, "")
	pdf.Ln(0.2)

	// Summary table
	summary := [][2]string{
		{"Topic:", in.Topic},
		{"Difficulty:", in.Difficulty.Title()},
		{"Date:", in.Date.Format("2006-01-02 15:04")},
		{"Score:", fmt.Sprintf("%d/%d", in.Score, in.TotalQuestions)},
		{"Percentage:", fmt.Sprintf("%.1f%%", in.Percentage)},
	}
	pdf.SetFillColor(colorLabelBg.r, colorLabelBg.g, colorLabelBg.b)
	pdf.SetDrawColor(128, 128, 128)
	setColor(colorBlack)
	for _, row := range summary {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(2, 0.3, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(4, 0.3, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(0.3)

	// Grade
	grade := in.Grade
	pdf.SetFont("Helvetica", "B", 16)
	setColor(gradeColor(grade))
	pdf.CellFormat(contentW, 0.35, grade.Label(), "", 1, "C", false, 0, "")
	pdf.Ln(0.3)

	// Detailed results
	pdf.SetFont("Helvetica", "B", 14)
	setColor(colorHeading)
	pdf.CellFormat(contentW, 0.3, "Detailed Results", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	markW, noteW := 0.5, 1.7
	textW := contentW - markW - noteW

	for i, q := range in.Questions {
		setColor(colorBlack)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(contentW, reportLineHeight, tr(fmt.Sprintf("Question %d: %s", i+1, q.Text)), "", "L", false)
		pdf.Ln(0.1)

		pdf.SetFont("Helvetica", "", 10)
		for j, opt := range q.Options {
			mark := MarkOption(q, j, in.Answers[i])
			lines := pdf.SplitText(tr(opt), textW)
			h := reportLineHeight * float64(max(1, len(lines)))

			// Keep each option row on one page.
			if pdf.GetY()+h > pageH-reportMarginY {
				pdf.AddPage()
			}
			x, y := pdf.GetXY()
			setColor(markColor(mark))
			pdf.CellFormat(markW, h, fmt.Sprintf("%c.", 'A'+j), "", 0, "L", false, 0, "")
			setColor(colorBlack)
			pdf.MultiCell(textW, reportLineHeight, tr(opt), "", "L", false)
			pdf.SetXY(x+markW+textW, y)
			setColor(markColor(mark))
			pdf.CellFormat(noteW, h, mark.Note(), "", 1, "R", false, 0, "")
		}
		pdf.Ln(0.1)

		setColor(colorBlack)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(contentW, reportLineHeight, tr("Explanation: "+q.Explanation), "", "L", false)
		pdf.Ln(0.2)

		if (i+1)%QuestionsPerPage == 0 && i < len(in.Questions)-1 {
			pdf.AddPage()
		}
	}

	if pdf.Err() {
		return nil, &ExportError{Kind: ErrRender, Err: pdf.Error()}
	}
	return pdf, nil
}

package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/UOAF/bms-logcat/internal/logbook"
)

// Source identifies the file a report was generated from.
type Source struct {
	Path   string
	Sha256 string
}

// SavePilotPDF renders a pilot's career record into a printable PDF. When the
// source digest is known, a QR code of it is placed on the first page so a
// printed report can be matched to the exact logbook file it came from.
func SavePilotPDF(lb *logbook.Logbook, src Source, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Pilot Logbook", false)
	pdf.SetAuthor("logcat", false)
	pdf.SetCreator("logcat", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addTitle(pdf, "Pilot Logbook")
	if err := addDigestQR(pdf, src); err != nil {
		return err
	}
	addCareerSection(pdf, lb)
	addMedalsSection(pdf, lb.Medals)
	addDogfightSection(pdf, lb.DogfightStats)
	addCampaignSection(pdf, lb.CampaignStats)
	addPersonalSection(pdf, lb.PersonalText)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addDigestQR(pdf *gofpdf.Fpdf, src Source) error {
	if strings.TrimSpace(src.Sha256) == "" {
		return nil
	}
	png, err := DigestQR(src.Sha256, 256)
	if err != nil {
		return fmt.Errorf("digest qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("source-digest", opts, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("source-digest", pageW-15-28, 12, 28, 28, false, opts, 0, "")
	if src.Path != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.Cell(0, 4, fmt.Sprintf("Source: %s", src.Path))
		pdf.Ln(6)
	}
	return nil
}

func addCareerSection(pdf *gofpdf.Fpdf, lb *logbook.Logbook) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Career")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Name", value: lb.Name},
		{label: "Callsign", value: lb.Callsign},
		{label: "Rank", value: lb.Rank.String()},
		{label: "Commissioned", value: lb.Commissioned},
		{label: "Squadron", value: lb.Squadron},
		{label: "Flight Hours", value: strconv.FormatFloat(float64(lb.FlightHours), 'f', 1, 32)},
		{label: "Ace Factor", value: strconv.FormatFloat(float64(lb.AceFactor), 'f', 2, 32)},
		{label: "Voice", value: strconv.Itoa(int(lb.Voice))},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, emptyFallback(item.value, "-"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addMedalsSection(pdf *gofpdf.Fpdf, medals logbook.MedalSet) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Medals")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	if medals.Empty() {
		pdf.MultiCell(0, 6, "No medals earned.", "", "L", false)
		pdf.Ln(2)
		return
	}
	for _, m := range medals.Medals() {
		pdf.MultiCell(0, 6, "- "+medalLabel(m), "", "L", false)
	}
	pdf.Ln(2)
}

func addDogfightSection(pdf *gofpdf.Fpdf, s logbook.DogfightStats) {
	rows := [][2]string{
		{"Matches Won", strconv.Itoa(int(s.MatchesWon))},
		{"Matches Lost", strconv.Itoa(int(s.MatchesLost))},
		{"Matches Won vs Humans", strconv.Itoa(int(s.MatchesWonVersusHumans))},
		{"Matches Lost vs Humans", strconv.Itoa(int(s.MatchesLostVersusHumans))},
		{"Kills", strconv.Itoa(int(s.Kills))},
		{"Killed", strconv.Itoa(int(s.Killed))},
		{"Human Kills", strconv.Itoa(int(s.HumanKills))},
		{"Killed vs Humans", strconv.Itoa(int(s.KilledVersusHumans))},
	}
	addStatsTable(pdf, "Dogfight", rows)
}

func addCampaignSection(pdf *gofpdf.Fpdf, s logbook.CampaignStats) {
	rows := [][2]string{
		{"Games Won", strconv.Itoa(int(s.GamesWon))},
		{"Games Lost", strconv.Itoa(int(s.GamesLost))},
		{"Games Tied", strconv.Itoa(int(s.GamesTied))},
		{"Missions", strconv.Itoa(int(s.Missions))},
		{"Total Score", strconv.Itoa(int(s.TotalScore))},
		{"Total Mission Score", strconv.Itoa(int(s.TotalMissionScore))},
		{"Consecutive Missions", strconv.Itoa(int(s.ConsecutiveMissions))},
		{"Kills", strconv.Itoa(int(s.Kills))},
		{"Killed", strconv.Itoa(int(s.Killed))},
		{"Human Kills", strconv.Itoa(int(s.HumanKills))},
		{"Killed vs Humans", strconv.Itoa(int(s.KilledVersusHumans))},
		{"Self Kills", strconv.Itoa(int(s.SelfKills))},
		{"Air-to-Ground Kills", strconv.Itoa(int(s.AirToGroundKills))},
		{"Static Kills", strconv.Itoa(int(s.StaticKills))},
		{"Naval Kills", strconv.Itoa(int(s.NavalKills))},
		{"Friendly Kills", strconv.Itoa(int(s.FriendlyKills))},
		{"Missions Since Friendly Kill", strconv.Itoa(int(s.MissionsSinceLastFriendlyKill))},
	}
	addStatsTable(pdf, "Campaign", rows)
}

func addStatsTable(pdf *gofpdf.Fpdf, title string, rows [][2]string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Statistic", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Value", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		pdf.CellFormat(90, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func addPersonalSection(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Personal Text")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, emptyFallback(strings.TrimSpace(text), "No personal text."), "", "L", false)
}

func medalLabel(m logbook.Medal) string {
	switch m {
	case logbook.AirForceCross:
		return "Air Force Cross"
	case logbook.SilverStar:
		return "Silver Star"
	case logbook.DistinguishedFlyingCross:
		return "Distinguished Flying Cross"
	case logbook.AirMedal:
		return "Air Medal"
	case logbook.KoreaCampaign:
		return "Korea Campaign"
	case logbook.Longevity:
		return "Longevity"
	default:
		return m.String()
	}
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

package tickets

import (
	"bytes"
	"fmt"
	"strings"

	"cafehub/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var titles = map[string]string{
	models.ReservationTable:     "Table Reservation",
	models.ReservationCinema:    "Cinema Ticket",
	models.ReservationEvent:     "Event Ticket",
	models.ReservationCoworking: "Coworking Pass",
	models.ReservationOrder:     "Order Receipt",
}

// details lists the type-specific lines printed under the header.
func details(res *models.Reservation) []string {
	var out []string
	switch res.Type {
	case models.ReservationTable:
		out = append(out, "Table: "+res.TableID, fmt.Sprintf("Guests: %d", res.NumberOfPeople))
	case models.ReservationCinema:
		out = append(out, "Session: "+res.SessionID, "Seats: "+strings.Join(res.SeatNumbers, ", "))
	case models.ReservationEvent:
		out = append(out, "Session: "+res.SessionID, fmt.Sprintf("Attendees: %d", res.NumberOfPeople))
		if len(res.AttendeeNames) > 0 {
			out = append(out, "Names: "+strings.Join(res.AttendeeNames, ", "))
		}
	case models.ReservationCoworking:
		out = append(out, "Desk: "+res.DeskID)
	case models.ReservationOrder:
		for _, it := range res.Items {
			out = append(out, fmt.Sprintf("%d x %s  %.2f", it.Quantity, it.Name, it.UnitPrice*float64(it.Quantity)))
		}
	}
	if res.TotalPrice > 0 {
		out = append(out, fmt.Sprintf("Total: %.2f", res.TotalPrice))
	}
	return out
}

// Render draws a one-page A4 ticket with the QR payload in the corner.
func Render(res *models.Reservation, cafe *models.Cafe, holder, payload string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	title := titles[res.Type]
	if title == "" {
		title = "Reservation"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, tr(cafe.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	if cafe.Location != "" {
		pdf.CellFormat(0, 6, tr(cafe.Location), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	lines := []string{
		"Reservation: " + res.ID,
		"Name: " + holder,
		"Date: " + res.Date + " " + res.Time,
		"Status: " + res.Status,
	}
	lines = append(lines, details(res)...)
	pdf.MultiCell(120, 7, tr(strings.Join(lines, "\n")), "", "L", false)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 145, 45, 45, 45, false, opts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Show this code at the counter.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nortsur/pedidos/internal/client"
)

// FormatMoney renders cents as "$20.700,00": dot thousands separator and comma decimals.
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return fmt.Sprintf("%s$%s,%02d", sign, b.String(), cents%100)
}

// RenderSummary produces the chat-facing order summary. c may be nil; products
// maps product id to display name and may miss entries.
func RenderSummary(o *Order, c *client.Client, products map[int64]string) string {
	name := "Cliente"
	tel := ""
	if c != nil {
		name = c.Name
		tel = c.PhoneValue()
	}

	lines := make([]string, 0, len(o.Items)+7)
	lines = append(lines, fmt.Sprintf("Pedido #%d – %s", o.ID, Normalize(string(o.Status))))
	clientLine := "Cliente: " + name
	if tel != "" {
		clientLine += " (" + tel + ")"
	}
	lines = append(lines, clientLine, "")

	for _, it := range o.Items {
		productName, ok := products[it.ProductID]
		if !ok {
			productName = fmt.Sprintf("Producto %d", it.ProductID)
		}
		lines = append(lines, fmt.Sprintf("- %dx %s | %s | Sub: %s",
			it.Quantity, productName, FormatMoney(it.UnitPriceCents), FormatMoney(it.SubtotalCents)))
	}

	lines = append(lines, "", "Total: "+FormatMoney(o.NetCents))

	if obs := o.ObservationsText(); obs != "" {
		lines = append(lines, "", "Obs: "+obs)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

const observationStampLayout = "2006-01-02 15:04Z"

// AppendObservation adds a "[stamp] text" line to the log. Blank text is a no-op.
func AppendObservation(existing *string, text string, now time.Time) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return existing
	}

	line := fmt.Sprintf("[%s] %s", now.UTC().Format(observationStampLayout), text)
	base := ""
	if existing != nil {
		base = strings.TrimRight(*existing, " \t\r\n")
	}

	out := line
	if base != "" {
		out = strings.TrimSpace(base + "\n" + line)
	}
	return &out
}

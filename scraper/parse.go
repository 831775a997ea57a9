package scraper

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/notblessy/coinsnap/models"
)

// Listing rows carry a watchlist toggle in the first cell, then rank, name,
// price, 1h/24h/7d change, market cap, 24h volume and circulating supply.
const minListingCells = 10

// ParseListing extracts snapshot rows from a rendered listing document. It
// returns the parsed rows plus the count of data rows skipped for having too
// few cells. A document without the listing table yields no rows.
func ParseListing(r io.Reader) ([]models.CryptoSnapshot, int) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, 0
	}

	table := findListingTable(doc)
	if table == nil {
		return nil, 0
	}

	var (
		snapshots []models.CryptoSnapshot
		skipped   int
	)
	eachRow(table, func(row *html.Node) {
		cells := cellTexts(row)
		if len(cells) == 0 {
			// header row, cells are <th>
			return
		}
		if len(cells) < minListingCells {
			skipped++
			return
		}

		// A non-numeric rank keeps the row with rank 0.
		rank, _ := strconv.Atoi(cells[1])

		snapshots = append(snapshots, models.CryptoSnapshot{
			Rank:              rank,
			Name:              cells[2],
			Price:             cells[3],
			Change1h:          cells[4],
			Change24h:         cells[5],
			Change7d:          cells[6],
			MarketCap:         cells[7],
			Volume24h:         cells[8],
			CirculatingSupply: cells[9],
		})
	})

	return snapshots, skipped
}

func findListingTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table && hasClass(n, "cmc-table") {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findListingTable(c); t != nil {
			return t
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func eachRow(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		eachRow(c, fn)
	}
}

func cellTexts(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, strings.TrimSpace(collectText(c)))
		}
	}
	return cells
}

func collectText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

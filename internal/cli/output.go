package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deployment-bingo/bingosync/internal/model"
	"github.com/deployment-bingo/bingosync/internal/views"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.Player:
		o.printPlayer(v)
	case []model.Player:
		for _, p := range v {
			o.printPlayer(p)
		}
	case model.GameSession:
		o.printSession(v)
	case []model.GameSession:
		for _, s := range v {
			o.printSession(s)
		}
	case model.BingoItem:
		o.printItem(v)
	case []model.BingoItem:
		for _, item := range v {
			o.printItem(item)
		}
	case views.Grid:
		o.printGrid(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p model.Player) {
	status := "offline"
	if p.Online {
		status = "online"
	}
	fmt.Printf("%s  %-20s %s\n", p.Identity.Short(), p.DisplayName(), status)
}

func (o *Output) printSession(s model.GameSession) {
	state := "active"
	if !s.Active {
		state = "finished"
		if s.Winner != nil {
			state = fmt.Sprintf("won by %s", s.Winner.Short())
		}
	}
	fmt.Printf("#%-4d %-30s %s\n", s.ID, s.Name, state)
}

func (o *Output) printItem(item model.BingoItem) {
	fmt.Printf("#%-4d %s\n", item.ID, item.Body)
}

const cellWidth = 18

func (o *Output) printGrid(grid views.Grid) {
	border := "+" + strings.Repeat(strings.Repeat("-", cellWidth)+"+", model.BoardSize)
	for y := 0; y < model.BoardSize; y++ {
		fmt.Println(border)
		row := "|"
		for x := 0; x < model.BoardSize; x++ {
			cell := grid.At(x, y)
			label := ""
			if cell.Filled {
				label = truncate(cell.Item.Body, cellWidth-4)
				if cell.Item.Checked {
					label = "[x] " + label
				} else {
					label = "[ ] " + label
				}
			}
			row += fmt.Sprintf(" %-*s|", cellWidth-1, label)
		}
		fmt.Println(row)
	}
	fmt.Println(border)
}

// truncate caps s at max runes, ending with an ellipsis when it was
// cut. Indexing by rune keeps multi-byte characters intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

package notation

import (
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/tables"
)

// decodeBeatGroup scans a run of unicode symbols, attaching combining
// modifier characters to the base symbol they follow (spec.md §4.1
// "Symbol decoding"). Unknown characters fail with UnknownSymbolError,
// located at the file/line/column where they occur.
func decodeBeatGroup(text string, line, startCol int, font *tables.FontTable, file string, col *perr.Collector) []RawSymbol {
	var symbols []RawSymbol
	runes := []rune(text)

	i := 0
	c := startCol
	for i < len(runes) {
		r := runes[i]
		entry, ok := font.Lookup(r)
		if !ok {
			col.Add(perr.New(perr.UnknownSymbolError, perr.Location{File: file, Line: line, Column: c}, "unknown notation symbol %q", string(r)))
			i++
			c++
			continue
		}
		if entry.IsModifier {
			// A modifier with no preceding base symbol is itself reported
			// as unknown-in-context but does not abort the scan.
			if len(symbols) == 0 {
				col.Add(perr.New(perr.UnknownSymbolError, perr.Location{File: file, Line: line, Column: c}, "combining modifier %q with no preceding base symbol", string(r)))
				i++
				c++
				continue
			}
			last := &symbols[len(symbols)-1]
			last.Modifiers = append(last.Modifiers, r)
			i++
			c++
			continue
		}
		symbols = append(symbols, RawSymbol{Base: r, Line: line, Col: c})
		i++
		c++
	}
	return symbols
}

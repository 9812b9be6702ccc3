package render

import (
	"bytes"
	"fmt"
	"html/template"
)

var page = template.Must(template.New("game").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Gomoku - {{.Doc.Metadata.Black}} vs {{.Doc.Metadata.White}}</title>
<style>
body { font-family: sans-serif; margin: 20px; }
.board { border-collapse: collapse; background: #deb887; }
.board th { background: #8b4513; color: #fff; padding: 4px 8px; }
.board td { width: 28px; height: 28px; border: 1px solid #8b4513; text-align: center; font-weight: bold; }
.black { background: #333; color: #fff; }
.white { background: #fff; color: #000; }
.winning { background: #f44336; color: #fff; }
.moves td, .moves th { padding: 2px 10px; text-align: left; }
</style>
</head>
<body>
<h1>{{.Doc.Metadata.Black}} (X) vs {{.Doc.Metadata.White}} (O)</h1>
<p>{{if .Doc.Metadata.Tournament}}{{.Doc.Metadata.Tournament}} - {{end}}{{.Doc.Metadata.BoardSize}}x{{.Doc.Metadata.BoardSize}}, {{.Doc.Result.MoveCount}} moves, {{.Doc.Result.DurationMS}} ms</p>
<h2 class="banner">{{.Doc.Banner}}</h2>
<table class="board">
<tr><th></th>{{range $c, $col := .Cols}}<th>{{$c}}</th>{{end}}</tr>
{{range $r, $row := .Cells}}<tr><th>{{$r}}</th>{{range $row}}<td class="{{.Class}}">{{.Symbol}}</td>{{end}}</tr>
{{end}}</table>
<h2>Moves</h2>
<table class="moves">
<tr><th>#</th><th>Player</th><th>Move</th><th>Time (ms)</th><th>Outcome</th></tr>
{{range .Doc.Result.Moves}}<tr><td>{{.Number}}</td><td>{{.Player}}</td><td>({{.Row}}, {{.Col}})</td><td>{{.ElapsedMS}}</td><td>{{.Outcome}}{{if .Error}}: {{.Error}}{{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type cell struct {
	Symbol string
	Class  string
}

type pageData struct {
	Doc   Document
	Cols  []struct{}
	Cells [][]cell
}

// HTML renders a standalone page with the final board and the move list.
func HTML(doc Document) ([]byte, error) {
	winning := make(map[[2]int]bool, len(doc.Result.WinningSequence))
	for _, m := range doc.Result.WinningSequence {
		winning[[2]int{m.Row, m.Col}] = true
	}

	data := pageData{Doc: doc}
	for r, line := range doc.Result.FinalBoard {
		row := make([]cell, 0, len(line))
		for c, ch := range line {
			sym := string(ch)
			class := ""
			switch sym {
			case "X":
				class = "black"
			case "O":
				class = "white"
			case ".":
				sym = ""
			}
			if winning[[2]int{r, c}] {
				class = "winning"
			}
			row = append(row, cell{Symbol: sym, Class: class})
		}
		data.Cells = append(data.Cells, row)
	}
	if len(data.Cells) > 0 {
		data.Cols = make([]struct{}, len(data.Cells[0]))
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render game page: %w", err)
	}
	return buf.Bytes(), nil
}

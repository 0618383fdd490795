package www

import (
	"html/template"
	"net/http"

	"node.town/attacca/action"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Riley's Rhythms</title>
    <style>
        body { background-color: #2c3e50; color: white; font-family: sans-serif; }
        h1 { text-align: center; font-size: 3rem; }
        .moods { display: flex; flex-wrap: wrap; gap: 16px; justify-content: center; }
        .mood { border-radius: 15px; padding: 20px; width: 180px; text-align: center; }
        .mood a { font-weight: bold; }
    </style>
</head>
<body>
    <h1>Riley's Rhythms</h1>
    <div class="moods">
    {{range .Moods}}
        <div class="mood" style="background: linear-gradient(135deg, {{.Darker}} 0%, #121212 100%); border: 2px solid {{.Color}}; color: {{.Text}};">
            <h3>{{.Emoji}} {{.Name}}</h3>
            <a href="/recommend?label={{.Label}}&genre={{$.Genre}}" style="color: {{.Color}};">{{.Name}}'s picks</a>
        </div>
    {{end}}
    </div>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Moods []action.Record
		Genre string
	}{
		Moods: action.Records(),
		Genre: action.DefaultGenre,
	}

	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

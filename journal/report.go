package journal

import (
	"io"
	"strings"
	"text/template"
	"time"
)

// Report describes a backtest run.
type Report struct {
	RunID    string
	Created  time.Time
	Symbol   string
	Interval string
	Variant  string
	Dataset  string

	Start time.Time
	End   time.Time
	Bars  int

	StartBalance float64
	EndBalance   float64
	MaxDDPct     float64

	Summary Summary
	Records []Record
}

func (r Report) NetPL() float64 { return r.EndBalance - r.StartBalance }

func (r Report) ReturnPct() float64 {
	if r.StartBalance == 0 {
		return 0
	}
	return 100 * r.NetPL() / r.StartBalance
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"upper": strings.ToUpper,
}

var reportTmpl = template.Must(template.New("backtest").Funcs(reportFuncs).Parse(ReportOrgTemplate))

// WriteOrg renders the report as an Org-mode document.
func (r Report) WriteOrg(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

const ReportOrgTemplate = `* BACKTEST: {{.Symbol}} {{if .Interval}}{{.Interval}}{{else}}(interval?){{end}} {{.Variant}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:VARIANT:     {{.Variant}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Summary.Trades}}
:WINS:        {{.Summary.Wins}}
:LOSSES:      {{.Summary.Losses}}
:PARTIALS:    {{.Summary.Partials}}
:WIN_RATE:    {{printf "%.2f" (mul100 .Summary.WinRate)}}
:PROFIT_FAC:  {{if ne .Summary.ProfitFactor 0.0}}{{printf "%.2f" .Summary.ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .Summary.WinRate)}}%*

** Trade Distribution
| Outcome  | Count |
|----------+-------|
| Wins     | {{.Summary.Wins}} |
| Losses   | {{.Summary.Losses}} |
| Partials | {{.Summary.Partials}} |
| Total    | {{.Summary.Trades}} |
{{- if .Records }}

** Exits
| Time | Type | Qty | Exit | P/L | Reason | Balance |
|------+------+-----+------+-----+--------+---------|
{{- range .Records }}
| {{.ExitTime.Format "2006-01-02 15:04"}} | {{upper .Direction.String}} | {{.Qty}} | {{printf "%.2f" .ExitPrice}} | {{printf "%.2f" .PnL}} | {{.Reason}} | {{printf "%.2f" .Balance}} |
{{- end }}
{{- end }}
`

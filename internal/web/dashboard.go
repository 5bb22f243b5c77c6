package web

import (
	"html/template"
	"net/http"

	"solpipe/internal/report"
	"solpipe/internal/util"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"money": util.FormatMoney,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Solutions Pipeline Report</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #1B2A4A; }
.kpis { display: flex; gap: 1rem; }
.kpi { border: 1px solid #E9ECEF; border-radius: 8px; padding: 1rem; min-width: 10rem; }
.kpi .label { font-size: 0.75rem; text-transform: uppercase; color: #6C757D; }
.kpi .value { font-size: 1.5rem; font-weight: 700; }
table { border-collapse: collapse; margin-top: 1rem; }
th, td { border: 1px solid #E9ECEF; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #1B2A4A; color: #fff; }
</style>
</head>
<body>
<h1>Solutions Pipeline Report</h1>

<div class="kpis">
  <div class="kpi" id="kpi-total-value"><div class="label">Total Pipeline</div><div class="value">{{.Summary.TotalValueDisplay}}</div></div>
  <div class="kpi" id="kpi-count"><div class="label">Opportunities</div><div class="value">{{.Summary.Count}}</div></div>
  <div class="kpi" id="kpi-avg-duration"><div class="label">Avg Stage Duration</div><div class="value">{{printf "%.0f" .Summary.AvgStageDuration}} days</div></div>
  <div class="kpi" id="kpi-past-due"><div class="label">Past Due</div><div class="value">{{.Summary.PastDue}}</div></div>
</div>

<h2>Stage Duration Distribution</h2>
<table id="aging-table">
<tr><th>Bucket</th><th>Count</th><th>Value</th></tr>
{{range .Summary.Aging}}<tr><td>{{.Label}}</td><td>{{.Count}}</td><td>{{money .Value}}</td></tr>
{{end}}</table>

<h2>Longest-Running Opportunities</h2>
<table id="at-risk-table">
<tr><th>Opportunity</th><th>Account</th><th>Days</th><th>Value</th></tr>
{{range .Summary.TopAtRisk}}<tr><td>{{.Name}}</td><td>{{.Account}}</td><td>{{.StageDuration}}</td><td>{{money .PAR}}</td></tr>
{{end}}</table>

<h2>Pipeline by Stage</h2>
<table id="stage-table">
<tr><th>Stage</th><th>Count</th><th>Value</th></tr>
{{range .Summary.ByStage}}<tr><td>{{.Key}}</td><td>{{.Count}}</td><td>{{money .Value}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type dashboardData struct {
	Summary report.Summary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.LoadMasterfile()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := dashboardData{Summary: report.Build(records, s.now(), atRiskLimit)}
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

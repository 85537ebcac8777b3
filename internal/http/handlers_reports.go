package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/report"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.reports.FinancialReport(r.Context(), ownerID(r), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriod(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := ownerID(r)
	key := statsCacheKey(owner, start, end)
	cacheControl := fmt.Sprintf("private, max-age=%d", int(s.statsTTL.Seconds()))

	if stats, ok := s.statsCache.Get(key); ok {
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.reports.Statistics(r.Context(), owner, start, end)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.statsCache.Set(key, *stats)

	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var csv string
	switch format := r.URL.Query().Get("format"); format {
	case "", "transactions":
		csv, err = s.reports.ExportTransactionsCSV(r.Context(), ownerID(r), filter)
	case "categories":
		csv, err = s.reports.ExportCategoryBreakdownCSV(r.Context(), ownerID(r), filter)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid format %q: want transactions or categories", format))
		return
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	filename := fmt.Sprintf("financial-report-%d.csv", time.Now().Unix())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(report.UTF8BOM + csv))
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.reports.FinancialReport(r.Context(), ownerID(r), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	doc, err := s.html.Render(rep)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	filename := fmt.Sprintf("financial-report-%d.html", time.Now().Unix())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(doc))
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	png, err := s.reports.MonthlyTrendChart(r.Context(), ownerID(r), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(png) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

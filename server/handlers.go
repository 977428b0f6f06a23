package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ErickG09/api-muro-eolico/rollup"

	"github.com/gorilla/mux"
)

// belowThresholdMessage is the dashboard's established contract for a
// reading that was filtered out by the activity gate.
const belowThresholdMessage = "Data not saved. Total sum is less than 0.2"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the wind wall API"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in rollup.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	result, err := s.rollups.SubmitReading(in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !result.Saved {
		RespondJSON(w, http.StatusOK, map[string]string{"message": belowThresholdMessage})
		return
	}
	RespondJSON(w, http.StatusOK, result.Reading)
}

func (s *Server) handleReadLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := s.rollups.LatestReading()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, reading)
}

func (s *Server) handleReadTempLatest(w http.ResponseWriter, r *http.Request) {
	group, err := strconv.Atoi(mux.Vars(r)["group"])
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "invalid group number")
		return
	}
	snapshot, err := s.rollups.LatestSnapshot(group)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	readings, err := s.rollups.AllReadings()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, readings)
}

func (s *Server) handleReadForDate(w http.ResponseWriter, r *http.Request) {
	dayKey, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	readings, err := s.rollups.ReadingsForDate(dayKey)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, readings)
}

func (s *Server) handleGetAllHours(w http.ResponseWriter, r *http.Request) {
	dayKey, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	totals, err := s.rollups.HourlyTotals(dayKey)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetAllMinutes(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		RespondErrorString(w, http.StatusBadRequest, "Date parameter is required")
		return
	}
	ts, err := s.clock.ParseDateTime(dateStr)
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD HH:MM:SS")
		return
	}
	totals, err := s.rollups.MinuteTotals(ts)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetHourByNumber(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "invalid hour number")
		return
	}
	total, err := s.rollups.HourTotalToday(hour)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, total)
}

func (s *Server) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.rollups.GroupTotals()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleReadAllDays(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rollups.AllDayRollups()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetCurrentDay(w http.ResponseWriter, r *http.Request) {
	row, err := s.rollups.CurrentDay()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if row == nil {
		RespondJSON(w, http.StatusOK, map[string]float64{"total": 0})
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (s *Server) handleRead30Days(w http.ResponseWriter, r *http.Request) {
	totals, err := s.rollups.Rolling30Days()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	totals, err := s.rollups.CurrentWeekTotals()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetDayByNumber(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "invalid day number")
		return
	}
	total, err := s.rollups.DayByOffset(day)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, total)
}

func (s *Server) handleGetCurrentMonth(w http.ResponseWriter, r *http.Request) {
	row, err := s.rollups.CurrentMonth()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if row == nil {
		RespondJSON(w, http.StatusOK, map[string]float64{"total": 0})
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (s *Server) handleReadAllMonths(w http.ResponseWriter, r *http.Request) {
	totals, err := s.rollups.MonthBreakdown()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetMonthsObjects(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rollups.AllMonthRollups()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetTotal(w http.ResponseWriter, r *http.Request) {
	row, err := s.rollups.AllTimeTotal()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if row == nil {
		RespondJSON(w, http.StatusOK, map[string]float64{"total": 0})
		return
	}
	RespondJSON(w, http.StatusOK, row)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.rollups.ResetAll(); err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "All data has been deleted"})
}

func (s *Server) handleResetSnapshots(w http.ResponseWriter, r *http.Request) {
	if err := s.rollups.ResetSnapshots(); err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "All data has been deleted"})
}

func (s *Server) handleDeleteAllZeros(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.rollups.DeleteZeroReadings()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All zeros have been deleted",
		"deleted": deleted,
	})
}

func (s *Server) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.rollups.DeleteDayRollup(uint(id)); err != nil {
		respondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "Day rollup deleted"})
}

// dateParam reads the optional ?date=YYYY-MM-DD query parameter,
// defaulting to today. The second return value is false when the request
// has already been answered with an error.
func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return s.clock.Today(), true
	}
	parsed, err := s.clock.ParseDate(dateStr)
	if err != nil {
		RespondErrorString(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return time.Time{}, false
	}
	return parsed, true
}

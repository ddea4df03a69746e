package http

import (
	"net/http"

	"equilo/internal/core"
	"equilo/internal/service"
)

type expenseRequest struct {
	Amount       core.Money `json:"amount"`
	Description  string     `json:"description"`
	Date         core.Date  `json:"date"`
	PaidBy       int64      `json:"paid_by"`
	Category     *int64     `json:"category"`
	SplitUserIDs []int64    `json:"split_user_ids"`
}

func (req expenseRequest) toInput() service.ExpenseInput {
	return service.ExpenseInput{
		Amount:       req.Amount,
		Description:  req.Description,
		Date:         req.Date,
		PaidBy:       req.PaidBy,
		CategoryID:   req.Category,
		SplitUserIDs: req.SplitUserIDs,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	expense, err := s.svc.Expenses.CreateExpense(r.Context(), placeID, userID(r), req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.svc.Expenses.ListExpenses(r.Context(), placeID, userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenseID, err := pathID(r, "eid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := s.svc.Expenses.GetExpense(r.Context(), placeID, userID(r), expenseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// expensePatchRequest leaves absent fields nil so a partial update keeps
// the stored values.
type expensePatchRequest struct {
	Amount       *core.Money `json:"amount"`
	Description  *string     `json:"description"`
	Date         *core.Date  `json:"date"`
	PaidBy       *int64      `json:"paid_by"`
	Category     *int64      `json:"category"`
	SplitUserIDs *[]int64    `json:"split_user_ids"`
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenseID, err := pathID(r, "eid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	existing, err := s.svc.Expenses.GetExpense(r.Context(), placeID, userID(r), expenseID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	in := service.ExpenseInput{
		Amount:       existing.Amount,
		Description:  existing.Description,
		Date:         existing.Date,
		PaidBy:       existing.PaidBy,
		CategoryID:   existing.CategoryID,
		SplitUserIDs: existing.SplitUserIDs,
	}
	if req.Amount != nil {
		in.Amount = *req.Amount
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if req.PaidBy != nil {
		in.PaidBy = *req.PaidBy
	}
	if req.Category != nil {
		in.CategoryID = req.Category
	}
	if req.SplitUserIDs != nil {
		in.SplitUserIDs = *req.SplitUserIDs
	}

	expense, err := s.svc.Expenses.UpdateExpense(r.Context(), placeID, userID(r), expenseID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	placeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenseID, err := pathID(r, "eid")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Expenses.DeleteExpense(r.Context(), placeID, userID(r), expenseID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

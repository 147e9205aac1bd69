package http

import (
	"net/http"

	"stationrent-backend/internal/domain"
)

type walletResponse struct {
	Balance      int64                      `json:"balance"`
	Transactions []domain.WalletTransaction `json:"transactions"`
	Total        int                        `json:"total"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Total         int                   `json:"total"`
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := h.services.Wallet.GetBalance(r.Context(), user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size := pageParams(r)
	txs, total, err := h.services.Wallet.GetTransactions(r.Context(), user.UserID, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Balance: balance, Transactions: txs, Total: total})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size := pageParams(r)
	notes, total, err := h.services.Notifications.GetNotifications(r.Context(), user.UserID, page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: notes, Total: total})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.services.Notifications.MarkAsRead(r.Context(), user.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

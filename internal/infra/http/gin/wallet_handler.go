package ginserver

import (
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/commands"
	walletapp "stayledger/internal/app/handlers/wallet"
	"stayledger/internal/app/queries"
)

type WalletHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h WalletHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := walletapp.GetWalletQuery{ActorID: user.ID}
	result, err := queries.Ask[walletapp.GetWalletQuery, *walletapp.GetWalletResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cashInRequest struct {
	Amount int64 `json:"amount"` // centavos
}

func (h WalletHandler) CashIn(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req cashInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := walletapp.CashInCommand{
		ActorID:         user.ID,
		Amount:          req.Amount,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[walletapp.CashInCommand, *walletapp.CashInResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h WalletHandler) Transactions(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	query := walletapp.ListTransactionsQuery{ActorID: user.ID, Limit: limit}
	result, err := queries.Ask[walletapp.ListTransactionsQuery, *walletapp.ListTransactionsResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ WalletHTTP = WalletHandler{}

package controllers

import (
	"strconv"
	"time"

	"github.com/adithyan-km/PaySphere/config"
	"github.com/adithyan-km/PaySphere/services"
	"github.com/adithyan-km/PaySphere/utils"
	"github.com/gin-gonic/gin"
)

// AcceptOTORequest carries the guest email for settlements made without an
// account. Authenticated callers are identified by their token instead.
type AcceptOTORequest struct {
	Email string `json:"email"`
}

// AcceptOTO takes the one-time offer attached to a settlement. Safe to call
// twice; the second call returns the original result. The caller must be the
// settlement's purchaser.
func AcceptOTO(c *gin.Context) {
	utils.LogInfo("AcceptOTO called")

	settlementID, err := strconv.ParseUint(c.Param("settlementID"), 10, 32)
	if err != nil {
		utils.BadRequest(c, "Invalid settlement id", nil)
		return
	}

	// Body is optional; authenticated callers need no email.
	var req AcceptOTORequest
	_ = c.ShouldBindJSON(&req)

	result, err := services.AcceptOTO(config.DB, uint(settlementID), currentIdentity(c, req.Email), time.Now())
	if err != nil {
		utils.LogError("OTO accept failed for settlement %d: %v", settlementID, err)
		utils.InternalServerError(c, "Failed to accept offer", nil)
		return
	}

	if !result.Accepted {
		if result.Reason == services.ReasonInvalidRequest {
			utils.NotFound(c, "Settlement not found")
			return
		}
		utils.LogInfo("OTO rejected for settlement %d: %s", settlementID, result.Detail)
		utils.BadRequest(c, "Offer is no longer available", gin.H{
			"reason": result.Reason,
			"detail": result.Detail,
		})
		return
	}

	data := gin.H{
		"replayed":   result.Replayed,
		"settlement": result.Settlement,
	}
	if result.Grant != nil {
		data["grant"] = result.Grant
	}
	utils.Success(c, "Offer accepted", data)
}

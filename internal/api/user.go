package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"` // Phone number must be provided
}

// RegisterHandler creates a user for a phone number
func RegisterHandler(reg Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
			return
		}
		user, err := reg.CreateUser(c.Request.Context(), req.PhoneNumber) // Register the user
		if err != nil {
			writeError(c, err) // Duplicate, invalid or store fault
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user_id": user.ID})
	}
}

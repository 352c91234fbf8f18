package response

import (
	"github.com/gin-gonic/gin"

	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
)

// RespondAppError maps an application error onto the envelope. Anything that
// is not an *apierr.Error surfaces as a 500 with a generic code.
func RespondAppError(c *gin.Context, err error) {
	ae := apierr.From(err)
	cause := ae.Err
	if cause == nil {
		cause = ae
	}
	RespondError(c, ae.Status, ae.Code, cause)
}

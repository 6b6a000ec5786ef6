package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/pkg/response"
)

const nodeInfoSchema = "http://nodeinfo.diaspora.software/ns/schema/2.0"

type instanceService interface {
	NodeInfo(ctx context.Context) (*dto.NodeInfo, error)
	Instance(ctx context.Context) (*dto.InstanceInfo, error)
}

// InstanceHandler publishes federation metadata. These documents are consumed by other
// servers, so they are returned bare rather than wrapped in the response envelope.
type InstanceHandler struct {
	service instanceService
	baseURL string
}

// NewInstanceHandler builds a new handler. baseURL is the public instance root.
func NewInstanceHandler(service instanceService, baseURL string) *InstanceHandler {
	return &InstanceHandler{service: service, baseURL: baseURL}
}

// WellKnownNodeInfo godoc
// @Summary Nodeinfo discovery document
// @Tags Instance
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /.well-known/nodeinfo [get]
func (h *InstanceHandler) WellKnownNodeInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"links": []gin.H{{"rel": nodeInfoSchema, "href": h.baseURL + "/nodeinfo/2.0"}},
	})
}

// NodeInfo godoc
// @Summary Nodeinfo 2.0 document
// @Tags Instance
// @Produce json
// @Success 200 {object} dto.NodeInfo
// @Router /nodeinfo/2.0 [get]
func (h *InstanceHandler) NodeInfo(c *gin.Context) {
	info, err := h.service.NodeInfo(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Instance godoc
// @Summary Mastodon-compatible instance description
// @Tags Instance
// @Produce json
// @Success 200 {object} dto.InstanceInfo
// @Router /api/v1/instance [get]
func (h *InstanceHandler) Instance(c *gin.Context) {
	info, err := h.service.Instance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

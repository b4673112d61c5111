/*
 * Copyright 2017-2022 Provide Technologies Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bungee

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/provideplatform/bungee/common"
	provide "github.com/provideplatform/provide-go/common"
)

// VerifyMerkleRootRequest is the body of a merkle root verification
type VerifyMerkleRootRequest struct {
	Input []string `json:"input"`
	Root  string   `json:"root"`
}

// InstallAPI registers the bungee API handlers with gin
func InstallAPI(r *gin.Engine, o *Orchestrator) {
	r.GET("/api/v1/bungee/public-key", o.publicKeyHandler)
	r.GET("/api/v1/bungee/strategies", o.availableStrategiesHandler)

	r.POST("/api/v1/bungee/create-view", o.createViewHandler)
	r.POST("/api/v1/bungee/process-view", o.processViewHandler)
	r.POST("/api/v1/bungee/merge-views", o.mergeViewsHandler)
	r.POST("/api/v1/bungee/verify-merkle-root", o.verifyMerkleRootHandler)
}

func renderError(err error, c *gin.Context) {
	status := 500
	switch {
	case errors.Is(err, common.ErrUnknownStrategy):
		status = 404
	case errors.Is(err, common.ErrSourceUnavailable):
		status = 503
	case errors.Is(err, common.ErrInvalidSignature):
		status = 401
	case errors.Is(err, common.ErrIntegrityMismatch):
		status = 422
	case errors.Is(err, common.ErrInsufficientViews),
		errors.Is(err, common.ErrUnknownPolicy),
		errors.Is(err, common.ErrInvalidPolicyArguments),
		errors.Is(err, common.ErrInvalidTimestamp):
		status = 400
	}
	provide.RenderError(err.Error(), status, c)
}

func (o *Orchestrator) publicKeyHandler(c *gin.Context) {
	provide.Render(map[string]interface{}{
		"public_key": o.PublicKey(),
		"scheme":     o.SignatureScheme(),
	}, 200, c)
}

func (o *Orchestrator) availableStrategiesHandler(c *gin.Context) {
	provide.Render(o.AvailableStrategies(), 200, c)
}

func (o *Orchestrator) createViewHandler(c *gin.Context) {
	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	req := &CreateViewRequest{}
	err = json.Unmarshal(buf, req)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	if req.StrategyID == "" {
		provide.RenderError("strategy_id is required", 422, c)
		return
	}

	resp, err := o.CreateView(c.Request.Context(), req)
	if err != nil {
		renderError(err, c)
		return
	}

	provide.Render(resp, 200, c)
}

func (o *Orchestrator) processViewHandler(c *gin.Context) {
	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	req := &ProcessViewRequest{}
	err = json.Unmarshal(buf, req)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	if req.SerializedView == "" {
		provide.RenderError("serialized_view is required", 422, c)
		return
	}

	resp, err := o.ProcessView(req.SerializedView, req.PolicyID, req.PolicyArguments)
	if err != nil {
		renderError(err, c)
		return
	}

	provide.Render(resp, 200, c)
}

func (o *Orchestrator) mergeViewsHandler(c *gin.Context) {
	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	req := &MergeViewsRequest{}
	err = json.Unmarshal(buf, req)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	resp, err := o.MergeViewsSerialized(req.SerializedViews, req.MergePolicy, req.PolicyArguments)
	if err != nil {
		renderError(err, c)
		return
	}

	provide.Render(resp, 200, c)
}

func (o *Orchestrator) verifyMerkleRootHandler(c *gin.Context) {
	buf, err := c.GetRawData()
	if err != nil {
		provide.RenderError(err.Error(), 400, c)
		return
	}

	req := &VerifyMerkleRootRequest{}
	err = json.Unmarshal(buf, req)
	if err != nil {
		provide.RenderError(err.Error(), 422, c)
		return
	}

	provide.Render(map[string]interface{}{
		"result": o.VerifyMerkleRoot(req.Input, req.Root),
	}, 200, c)
}

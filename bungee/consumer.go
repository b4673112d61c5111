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
	"fmt"
	"sync"
	"time"

	natsutil "github.com/kthomas/go-natsutil"
	"github.com/nats-io/nats.go"
)

const defaultNatsStream = "bungee"

const natsMergeViewsSubject = "bungee.merge.pending"
const natsMergeViewsCompleteSubject = "bungee.merge.complete"
const natsMergeViewsFailedSubject = "bungee.merge.failed"
const natsMergeViewsMaxInFlight = 32
const mergeViewsAckWait = time.Minute * 5
const mergeViewsMaxDeliveries = 5

// RequireNatsStream establishes the shared NATS connection and the bungee stream
func RequireNatsStream() {
	natsutil.EstablishSharedNatsConnection(nil)
	natsutil.NatsCreateStream(defaultNatsStream, []string{
		fmt.Sprintf("%s.>", defaultNatsStream),
	})
}

// RequireMergeConsumers subscribes the orchestrator to asynchronous merge requests
func RequireMergeConsumers(o *Orchestrator, wg *sync.WaitGroup) {
	for i := uint64(0); i < natsutil.GetNatsConsumerConcurrency(); i++ {
		natsutil.RequireNatsJetstreamSubscription(wg,
			mergeViewsAckWait,
			natsMergeViewsSubject,
			natsMergeViewsSubject,
			natsMergeViewsSubject,
			o.consumeMergeViewsMsg,
			mergeViewsAckWait,
			natsMergeViewsMaxInFlight,
			mergeViewsMaxDeliveries,
			nil,
		)
	}
}

func (o *Orchestrator) consumeMergeViewsMsg(msg *nats.Msg) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Warningf("recovered during merge; %s", r)
			msg.Nak()
		}
	}()

	o.log.Debugf("consuming %d-byte NATS merge message on subject: %s", len(msg.Data), msg.Subject)

	resp, err := o.handleMergeViewsMsg(msg.Data)
	if err != nil {
		o.log.Warningf("failed to merge views; %s", err.Error())
		payload, _ := json.Marshal(map[string]interface{}{
			"error": err.Error(),
		})
		natsutil.NatsJetstreamPublish(natsMergeViewsFailedSubject, payload)
		msg.Ack()
		return
	}

	payload, _ := json.Marshal(resp)
	natsutil.NatsJetstreamPublish(natsMergeViewsCompleteSubject, payload)
	msg.Ack()
}

func (o *Orchestrator) handleMergeViewsMsg(data []byte) (*MergeViewsResponse, error) {
	var req MergeViewsRequest
	err := json.Unmarshal(data, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal merge message; %s", err.Error())
	}
	return o.MergeViewsSerialized(req.SerializedViews, req.MergePolicy, req.PolicyArguments)
}

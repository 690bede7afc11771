// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/oculairmedia/huly-webhook-implementation-sub001/model"
	log "github.com/sirupsen/logrus"
)

type contextHandlerFunc func(c *Context, w http.ResponseWriter, r *http.Request)

type contextHandler struct {
	context     *Context
	handler     contextHandlerFunc
	handlerName string
}

func (h contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	context := h.context.Clone()
	context.RequestID = model.NewID()

	context.Logger = context.Logger.WithFields(log.Fields{
		"handler": h.handlerName,
		"method":  r.Method,
		"path":    r.URL.Path,
		"request": context.RequestID,
	})

	context.Logger.Debug("handling request")

	h.handler(context, w, r)

	context.Logger.WithField("elapsed", time.Since(start)).Debug("request complete")
}

func newContextHandler(context *Context, handler contextHandlerFunc) *contextHandler {
	splitFuncName := strings.Split(runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name(), ".")

	return &contextHandler{
		context:     context,
		handler:     handler,
		handlerName: splitFuncName[len(splitFuncName)-1],
	}
}

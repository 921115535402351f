// Package main provides the AWS Lambda Function URL handler for NERVE.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/nerve-engine/nerve/internal/bootstrap"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
)

// engine is built once per cold start and reused across warm invocations,
// same as the cache a long-lived process would keep.
var engine *bootstrap.Engine

func init() {
	eng, err := bootstrap.Build(config.Get())
	if err != nil {
		panic(fmt.Sprintf("bootstrap engine: %v", err))
	}
	engine = eng
	engine.Loop.RunOnce(context.Background())
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
	"Content-Type":                 "application/json",
}

// Handler routes a Lambda Function URL request to the matching Controller
// operation. Function URLs carry no path-param support of their own, so
// region IDs are parsed out of the raw path the same routes the web server
// registers via chi.
func Handler(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	path := request.RawPath
	method := request.RequestContext.HTTP.Method

	fmt.Printf("[%s] %s %s\n", time.Now().Format(time.RFC3339), method, path)

	if method == http.MethodOptions {
		return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: corsHeaders}, nil
	}

	if path == "/api/health" && method == http.MethodGet {
		return jsonResponse(200, map[string]interface{}{"status": "healthy"})
	}

	if regionID, ok := matchRegion(path, "/azs"); ok && method == http.MethodGet {
		azs, err := engine.Controller.ListAZs(regionID)
		if err != nil {
			return errorResponse(404, err)
		}
		return jsonResponse(200, azs)
	}

	if regionID, ok := matchRegion(path, ""); ok && method == http.MethodGet {
		region, err := engine.Controller.GetRegion(regionID)
		if err != nil {
			return errorResponse(404, err)
		}
		return jsonResponse(200, region)
	}

	if path == "/api/simulate" && method == http.MethodPost {
		return handleSimulate(request.Body)
	}

	if path == "/api/simulate/interruption" && method == http.MethodPost {
		return handleSimulateInterruption(request.Body)
	}

	if path == "/api/timeshift" && method == http.MethodPost {
		return handleTimeshift(request.Body)
	}

	if path == "/api/stats" && method == http.MethodGet {
		return jsonResponse(200, engine.Controller.DashboardStats())
	}

	return errorResponse(404, fmt.Errorf("not found: %s %s", method, path))
}

// matchRegion extracts the {regionID} segment from "/api/regions/{id}"+suffix.
func matchRegion(path, suffix string) (string, bool) {
	const prefix = "/api/regions/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", false
	}
	rest := path[len(prefix):]
	if suffix == "" {
		if rest == "" {
			return "", false
		}
		return rest, true
	}
	if len(rest) <= len(suffix) || rest[len(rest)-len(suffix):] != suffix {
		return "", false
	}
	return rest[:len(rest)-len(suffix)], true
}

func handleSimulate(body string) (events.LambdaFunctionURLResponse, error) {
	var req domain.SimulateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorResponse(400, fmt.Errorf("invalid request body: %w", err))
	}
	resp, err := engine.Controller.Simulate(req)
	if err != nil {
		return errorResponse(422, err)
	}
	return jsonResponse(200, resp)
}

func handleSimulateInterruption(body string) (events.LambdaFunctionURLResponse, error) {
	var req domain.CheckpointSimulateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorResponse(400, fmt.Errorf("invalid request body: %w", err))
	}
	event, err := engine.Controller.SimulateInterruption(req)
	if err != nil {
		return errorResponse(422, err)
	}
	return jsonResponse(200, event)
}

func handleTimeshift(body string) (events.LambdaFunctionURLResponse, error) {
	var req domain.TimeShiftRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errorResponse(400, fmt.Errorf("invalid request body: %w", err))
	}
	return jsonResponse(200, engine.Controller.ComputeTimeshift(req))
}

func jsonResponse(statusCode int, body interface{}) (events.LambdaFunctionURLResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.LambdaFunctionURLResponse{
			StatusCode: 500,
			Headers:    corsHeaders,
			Body:       `{"error": "failed to serialize response"}`,
		}, nil
	}
	return events.LambdaFunctionURLResponse{StatusCode: statusCode, Headers: corsHeaders, Body: string(data)}, nil
}

func errorResponse(statusCode int, err error) (events.LambdaFunctionURLResponse, error) {
	return jsonResponse(statusCode, map[string]string{"error": err.Error()})
}

func main() {
	lambda.Start(Handler)
}

package dynamo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// fakeDynamo is a minimal in-process DynamoDB JSON endpoint that understands
// the handful of operations and expressions OTPRepo issues.
type fakeDynamo struct {
	mu      sync.Mutex
	tables  map[string]bool
	ttl     map[string]string
	items   map[string]map[string]json.RawMessage
	targets []string
}

type attr struct {
	S string `json:"S,omitempty"`
	N string `json:"N,omitempty"`
}

type fakeRequest struct {
	TableName                 string                     `json:"TableName"`
	Item                      map[string]json.RawMessage `json:"Item"`
	Key                       map[string]attr            `json:"Key"`
	ExpressionAttributeValues map[string]attr            `json:"ExpressionAttributeValues"`
	TimeToLiveSpecification   struct {
		AttributeName string `json:"AttributeName"`
	} `json:"TimeToLiveSpecification"`
}

func newFakeDynamo(t *testing.T) (*fakeDynamo, *dynamodb.Client) {
	t.Helper()
	f := &fakeDynamo{
		tables: map[string]bool{},
		ttl:    map[string]string{},
		items:  map[string]map[string]json.RawMessage{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	client := dynamodb.New(dynamodb.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		Credentials:      credentials.NewStaticCredentialsProvider("test", "test", ""),
		RetryMaxAttempts: 1,
	})
	return f, client
}

func (f *fakeDynamo) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")
	f.targets = append(f.targets, op)

	var req fakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeError(w, "SerializationException", err.Error())
		return
	}

	switch op {
	case "CreateTable":
		if f.tables[req.TableName] {
			writeFakeError(w, "ResourceInUseException", "Table already exists: "+req.TableName)
			return
		}
		f.tables[req.TableName] = true
		writeFakeJSON(w, map[string]any{"TableDescription": map[string]any{"TableName": req.TableName, "TableStatus": "ACTIVE"}})
	case "UpdateTimeToLive":
		f.ttl[req.TableName] = req.TimeToLiveSpecification.AttributeName
		writeFakeJSON(w, map[string]any{"TimeToLiveSpecification": map[string]any{
			"AttributeName": req.TimeToLiveSpecification.AttributeName, "Enabled": true,
		}})
	case "DescribeTable":
		if !f.tables[req.TableName] {
			writeFakeError(w, "ResourceNotFoundException", "Requested resource not found")
			return
		}
		writeFakeJSON(w, map[string]any{"Table": map[string]any{"TableName": req.TableName, "TableStatus": "ACTIVE"}})
	case "PutItem":
		id := attrOf(req.Item, "otp_id").S
		f.items[id] = req.Item
		writeFakeJSON(w, map[string]any{})
	case "GetItem":
		item, ok := f.items[req.Key["otp_id"].S]
		if !ok {
			writeFakeJSON(w, map[string]any{})
			return
		}
		writeFakeJSON(w, map[string]any{"Item": item})
	case "DeleteItem":
		delete(f.items, req.Key["otp_id"].S)
		writeFakeJSON(w, map[string]any{})
	case "Query":
		now := parseN(req.ExpressionAttributeValues[":now"].N)
		out := []map[string]json.RawMessage{}
		for _, item := range f.items {
			if attrOf(item, "email").S == req.ExpressionAttributeValues[":email"].S &&
				parseN(attrOf(item, TTLAttribute).N) > now {
				out = append(out, item)
			}
		}
		writeFakeJSON(w, map[string]any{"Items": out, "Count": len(out), "ScannedCount": len(out)})
	case "Scan":
		now := parseN(req.ExpressionAttributeValues[":now"].N)
		out := []map[string]json.RawMessage{}
		for _, item := range f.items {
			if parseN(attrOf(item, TTLAttribute).N) <= now {
				out = append(out, map[string]json.RawMessage{"otp_id": item["otp_id"]})
			}
		}
		writeFakeJSON(w, map[string]any{"Items": out, "Count": len(out), "ScannedCount": len(f.items)})
	default:
		writeFakeError(w, "UnknownOperationException", op)
	}
}

func (f *fakeDynamo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func attrOf(item map[string]json.RawMessage, name string) attr {
	var a attr
	_ = json.Unmarshal(item[name], &a)
	return a
}

func parseN(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFakeError(w http.ResponseWriter, code, msg string) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"__type":  "com.amazonaws.dynamodb.v20120810#" + code,
		"message": msg,
	})
}

package payment_callback

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Parser turns a raw gateway payload into a Callback.
type Parser interface {
	Provider() string
	Parse(body []byte) (*Callback, error)
}

// GenericParser accepts the gateway-neutral Callback JSON shape.
type GenericParser struct{}

func (GenericParser) Provider() string { return "generic" }

func (GenericParser) Parse(body []byte) (*Callback, error) {
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	if cb.CorrelationID == "" {
		return nil, fmt.Errorf("correlation_id is required")
	}
	return &cb, nil
}

// mpesaTimeLayout is the yyyyMMddHHmmss format of TransactionDate, in Nairobi time.
const mpesaTimeLayout = "20060102150405"

var nairobi = time.FixedZone("EAT", 3*60*60)

type mpesaCallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type mpesaSTKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []mpesaCallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type mpesaPayload struct {
	Body struct {
		STKCallback *mpesaSTKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// MpesaParser reads Daraja STK push results. ResultCode 0 is success;
// anything else (1032 cancelled by user, 1 insufficient balance, ...) is a failure.
type MpesaParser struct{}

func (MpesaParser) Provider() string { return "mpesa" }

func (MpesaParser) Parse(body []byte) (*Callback, error) {
	var p mpesaPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode stk callback: %w", err)
	}
	stk := p.Body.STKCallback
	if stk == nil || stk.CheckoutRequestID == "" {
		return nil, fmt.Errorf("missing Body.stkCallback.CheckoutRequestID")
	}

	cb := &Callback{
		CorrelationID: stk.CheckoutRequestID,
		Succeeded:     stk.ResultCode == 0,
		ResultReason:  stk.ResultDesc,
	}
	if stk.CallbackMetadata == nil {
		return cb, nil
	}
	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			cb.TransactionID = rawString(item.Value)
		case "PhoneNumber":
			cb.PayerPhone = rawString(item.Value)
		case "Amount":
			var f float64
			if err := json.Unmarshal(item.Value, &f); err == nil {
				cb.Amount = new(int64)
				*cb.Amount = int64(math.Round(f))
			}
		case "TransactionDate":
			if t, err := time.ParseInLocation(mpesaTimeLayout, rawString(item.Value), nairobi); err == nil {
				cb.PaidAt = t.UTC()
			}
		}
	}
	return cb, nil
}

// rawString renders a JSON scalar as text; numbers keep all digits.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return string(raw)
}

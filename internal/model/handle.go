package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RateHandle is the decoded form of a shipping-rate handle.
//
// Wire format: "<method>-<instance>|<amount_minor>|<label-with-dashes>"
// e.g. "flat_rate-1|500|Standard-Shipping". The partner system stores the handle of the
// rate the buyer chose and sends it back with the order, so the format must stay stable.
type RateHandle struct {
	Method   string
	Instance string
	Amount   int64
	Label    string
}

// EncodeRateHandle builds the wire handle for a shipping rate.
// Spaces in the label become dashes; a pipe would break the format and is replaced too.
func EncodeRateHandle(h RateHandle) string {
	label := strings.ReplaceAll(h.Label, "|", " ")
	label = strings.Join(strings.Fields(label), "-")
	return fmt.Sprintf("%s-%s|%d|%s", h.Method, h.Instance, h.Amount, label)
}

// ParseRateHandle decodes a wire handle.
// The method/instance pair is split at the last dash, so method ids may contain dashes.
func ParseRateHandle(handle string) (RateHandle, error) {
	parts := strings.SplitN(handle, "|", 3)
	if len(parts) != 3 {
		return RateHandle{}, fmt.Errorf("invalid rate handle %q: want 3 pipe-separated parts", handle)
	}

	key := parts[0]
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return RateHandle{}, fmt.Errorf("invalid rate handle %q: want method-instance", handle)
	}

	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return RateHandle{}, fmt.Errorf("invalid rate handle %q: amount: %w", handle, err)
	}

	return RateHandle{
		Method:   key[:idx],
		Instance: key[idx+1:],
		Amount:   amount,
		Label:    strings.ReplaceAll(parts[2], "-", " "),
	}, nil
}

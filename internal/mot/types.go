package mot

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	ResultPassed = "PASSED"
	ResultFailed = "FAILED"
)

// Vehicle MOT 历史接口返回的车辆信息。测试记录保留原始 JSON，逐条校验
type Vehicle struct {
	Registration  string            `json:"registration"`
	Make          string            `json:"make"`
	Model         string            `json:"model"`
	FirstUsedDate string            `json:"firstUsedDate"`
	MotTests      []json.RawMessage `json:"motTests"`
}

type MotTest struct {
	CompletedDate string   `json:"completedDate"`
	TestResult    string   `json:"testResult"`
	OdometerValue Odometer `json:"odometerValue"`
	OdometerUnit  string   `json:"odometerUnit"`
	Defects       []Defect `json:"defects"`
}

type Defect struct {
	Text      string `json:"text"`
	Type      string `json:"type"`
	Dangerous *bool  `json:"dangerous"`
}

// Odometer 接口里里程既可能是字符串也可能是数字
type Odometer struct {
	Value string
	Set   bool
	// Numeric JSON 中是数字而不是字符串
	Numeric bool
}

func (o *Odometer) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value, o.Set = s, true
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value, o.Set, o.Numeric = n.String(), true, true
	return nil
}

var (
	ErrMissingCompletedDate = errors.New("invalid or missing completedDate")
	ErrInvalidTestResult    = errors.New("missing or invalid testResult")
	ErrNonNumericOdometer   = errors.New("non-numeric odometerValue")
)

// ParseTest 解码并校验单条测试记录
func ParseTest(raw json.RawMessage) (MotTest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return MotTest{}, err
	}

	date, ok := fields["completedDate"]
	if !ok || !isJSONString(date) {
		return MotTest{}, ErrMissingCompletedDate
	}

	var test MotTest
	if err := json.Unmarshal(raw, &test); err != nil {
		return MotTest{}, err
	}

	if test.TestResult != ResultPassed && test.TestResult != ResultFailed {
		return MotTest{}, ErrInvalidTestResult
	}

	if test.OdometerValue.Set && !validOdometer(test.OdometerValue) {
		return MotTest{}, ErrNonNumericOdometer
	}

	return test, nil
}

// validOdometer 数字（含小数，截断取整）都有效；字符串必须是整数
func validOdometer(o Odometer) bool {
	if o.Numeric {
		_, err := strconv.ParseFloat(o.Value, 64)
		return err == nil
	}
	_, err := strconv.Atoi(strings.TrimSpace(o.Value))
	return err == nil
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

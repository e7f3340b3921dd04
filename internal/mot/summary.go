package mot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"motchat/pkg/logger"
)

// NoTestDataMessage 返回给用户的无数据提示
const NoTestDataMessage = "No MoT test data available for this vehicle."

var ErrNoTestData = errors.New(NoTestDataMessage)

// BuildSummary 把车辆 MOT 历史整理成交给模型总结的纯文本
func BuildSummary(v *Vehicle) (string, error) {
	if v == nil || len(v.MotTests) == 0 {
		return "", ErrNoTestData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle Registration: %s\n", orDefault(v.Registration, "Unknown"))
	fmt.Fprintf(&b, "Make: %s\n", orDefault(v.Make, "Unknown"))
	fmt.Fprintf(&b, "Model: %s\n", orDefault(v.Model, "Unknown"))
	fmt.Fprintf(&b, "First Registered: %s\n\n", orDefault(v.FirstUsedDate, "Unknown"))
	b.WriteString("MoT Test History:\n")

	for i, raw := range v.MotTests {
		test, err := ParseTest(raw)
		if err != nil {
			logger.WithField("registration", v.Registration).
				Warnf("Skipping invalid MOT test #%d: %v", i, err)
			continue
		}
		writeTest(&b, test)
	}

	return b.String(), nil
}

func writeTest(b *strings.Builder, test MotTest) {
	result := "Fail ❌"
	if test.TestResult == ResultPassed {
		result = "Pass ✅"
	}
	fmt.Fprintf(b, "- Test Date: %s, Result: %s\n", orDefault(test.CompletedDate, "N/A"), result)

	mileage := "N/A"
	if test.OdometerValue.Set {
		mileage = test.OdometerValue.Value
	}
	fmt.Fprintf(b, "  Mileage: %s %s\n", mileage, test.OdometerUnit)

	for _, d := range test.Defects {
		dangerous := "N/A"
		if d.Dangerous != nil {
			dangerous = strconv.FormatBool(*d.Dangerous)
		}
		fmt.Fprintf(b, "  Defect: %s (Type: %s, Dangerous: %s)\n",
			orDefault(d.Text, "N/A"), orDefault(d.Type, "N/A"), dangerous)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

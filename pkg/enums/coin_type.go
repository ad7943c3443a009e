package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// CoinType classifies why a ledger entry occurred. Stored as a small integer.
type CoinType int

const (
	CoinTypeAdmin    CoinType = 0
	CoinTypePurchase CoinType = 1
	CoinTypeTrainer  CoinType = 2
	CoinTypeCreate   CoinType = 3
	CoinTypeEdit     CoinType = 4
	CoinTypeUpscaler CoinType = 5
	CoinTypeGenerate CoinType = 6
	CoinTypeFaceSwap CoinType = 7
	CoinTypeIdeogram CoinType = 8
	CoinTypeQwenEdit CoinType = 9
)

type coinTypeInfo struct {
	key         string
	label       string
	description string
	color       string
}

const (
	unknownCoinTypeLabel = "Unknown"
	unknownCoinTypeColor = "#757575"
)

var coinTypes = map[CoinType]coinTypeInfo{
	CoinTypeAdmin:    {key: "admin", label: "Admin", description: "Admin Transaction", color: "#9c27b0"},
	CoinTypePurchase: {key: "purchase", label: "Purchase", description: "Purchase", color: "#4caf50"},
	CoinTypeTrainer:  {key: "trainer", label: "Trainer", description: "Model Training", color: "#ff9800"},
	CoinTypeCreate:   {key: "create", label: "Create", description: "Photo Creation", color: "#2196f3"},
	CoinTypeEdit:     {key: "edit", label: "Edit", description: "Photo Editing", color: "#673ab7"},
	CoinTypeUpscaler: {key: "upscaler", label: "Upscaler", description: "Photo Upscaling", color: "#009688"},
	CoinTypeGenerate: {key: "generate", label: "Generate", description: "Generation", color: "#e91e63"},
	CoinTypeFaceSwap: {key: "faceSwap", label: "Face Swap", description: "Face Swap", color: "#FF5722"},
	CoinTypeIdeogram: {key: "ideogram", label: "Ideogram", description: "Ideogram Generation", color: "#9C27B0"},
	CoinTypeQwenEdit: {key: "qwenEdit", label: "Qwen Edit", description: "Qwen Photo Editing", color: "#3F51B5"},
}

// CoinTypes lists every category in ascending order.
var CoinTypes = []CoinType{
	CoinTypeAdmin,
	CoinTypePurchase,
	CoinTypeTrainer,
	CoinTypeCreate,
	CoinTypeEdit,
	CoinTypeUpscaler,
	CoinTypeGenerate,
	CoinTypeFaceSwap,
	CoinTypeIdeogram,
	CoinTypeQwenEdit,
}

func (t CoinType) IsValid() bool {
	_, ok := coinTypes[t]
	return ok
}

// Key is the camelCase name used in stats breakdowns.
func (t CoinType) Key() string {
	if info, ok := coinTypes[t]; ok {
		return info.key
	}
	return "type" + strconv.Itoa(int(t))
}

// Label is the short name printed in reports.
func (t CoinType) Label() string {
	if info, ok := coinTypes[t]; ok {
		return info.label
	}
	return unknownCoinTypeLabel
}

func (t CoinType) Description() string {
	if info, ok := coinTypes[t]; ok {
		return info.description
	}
	return unknownCoinTypeLabel
}

// Color is the hex colour used for the category cell in reports.
func (t CoinType) Color() string {
	if info, ok := coinTypes[t]; ok {
		return info.color
	}
	return unknownCoinTypeColor
}

// IsSpend reports whether entries of this category debit the balance in normal operation.
func (t CoinType) IsSpend() bool {
	return t.IsValid() && t != CoinTypeAdmin && t != CoinTypePurchase
}

func (t CoinType) String() string {
	return t.Label()
}

// ParseCoinType accepts the numeric form used on the wire.
func ParseCoinType(value string) (CoinType, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid coin type %q", value)
	}
	t := CoinType(n)
	if !t.IsValid() {
		return 0, fmt.Errorf("invalid coin type %q", value)
	}
	return t, nil
}

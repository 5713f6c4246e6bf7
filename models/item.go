// models/item.go
package models

import "time"

const ItemTable = "inventory_items"

// ItemType 物品类别（封闭枚举）
type ItemType string

const (
	ItemMaterial ItemType = "material"
	ItemTool     ItemType = "tool"
	ItemAPD      ItemType = "apd"
)

var ItemTypes = []ItemType{ItemMaterial, ItemTool, ItemAPD}

func (t ItemType) Valid() bool {
	switch t {
	case ItemMaterial, ItemTool, ItemAPD:
		return true
	}
	return false
}

// Prefix is the id prefix of the type: t1, m4, a2...
func (t ItemType) Prefix() string {
	switch t {
	case ItemTool:
		return "t"
	case ItemMaterial:
		return "m"
	case ItemAPD:
		return "a"
	}
	return ""
}

type InventoryItem struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name" validate:"max=200"`
	Type        ItemType  `gorm:"size:20;index;not null" json:"type"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Available   int       `gorm:"not null" json:"available"`
	Image       string    `gorm:"type:text" json:"image,omitempty"`
	AddedDate   time.Time `gorm:"not null" json:"addedDate"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Barcode     string    `gorm:"size:64" json:"barcode"`

	Brand     string `gorm:"size:120" json:"brand,omitempty" validate:"max=120"`
	Year      string `gorm:"size:10" json:"year,omitempty" validate:"max=10"`
	Unit      string `gorm:"size:40" json:"unit,omitempty" validate:"max=40"`
	Location  string `gorm:"size:120" json:"location,omitempty" validate:"max=120"`
	Condition string `gorm:"size:60" json:"condition,omitempty" validate:"max=60"`

	// tool
	ToolNumber          string     `gorm:"size:60" json:"toolNumber,omitempty" validate:"max=60"`
	SerialNumber        string     `gorm:"size:120" json:"serialNumber,omitempty" validate:"max=120"`
	LastCalibration     *time.Time `json:"lastCalibration,omitempty"`
	NextCalibration     *time.Time `json:"nextCalibration,omitempty"`
	Notes               string     `gorm:"type:text" json:"notes,omitempty"`
	MeasuringToolNumber string     `gorm:"size:60" json:"measuringToolNumber,omitempty" validate:"max=60"`
	SOP                 string     `gorm:"column:sop;type:text" json:"sop,omitempty"`

	// material / apd
	UsagePeriod string `gorm:"size:60" json:"usagePeriod,omitempty" validate:"max=60"`
}

func (InventoryItem) TableName() string { return ItemTable }

// ItemPatch 部分更新：只改非 nil 字段。类型与 id 不可改。
type ItemPatch struct {
	Name                *string    `json:"name,omitempty"`
	Quantity            *int       `json:"quantity,omitempty"`
	Available           *int       `json:"available,omitempty"`
	Image               *string    `json:"image,omitempty"`
	Description         *string    `json:"description,omitempty"`
	Brand               *string    `json:"brand,omitempty"`
	Year                *string    `json:"year,omitempty"`
	Unit                *string    `json:"unit,omitempty"`
	Location            *string    `json:"location,omitempty"`
	Condition           *string    `json:"condition,omitempty"`
	ToolNumber          *string    `json:"toolNumber,omitempty"`
	SerialNumber        *string    `json:"serialNumber,omitempty"`
	LastCalibration     *time.Time `json:"lastCalibration,omitempty"`
	NextCalibration     *time.Time `json:"nextCalibration,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	MeasuringToolNumber *string    `json:"measuringToolNumber,omitempty"`
	SOP                 *string    `json:"sop,omitempty"`
	UsagePeriod         *string    `json:"usagePeriod,omitempty"`
}

// Columns maps the patch to column names for gorm Updates.
func (p ItemPatch) Columns() map[string]any {
	m := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			m[col] = *v
		}
	}
	setStr("name", p.Name)
	if p.Quantity != nil {
		m["quantity"] = *p.Quantity
	}
	if p.Available != nil {
		m["available"] = *p.Available
	}
	setStr("image", p.Image)
	setStr("description", p.Description)
	setStr("brand", p.Brand)
	setStr("year", p.Year)
	setStr("unit", p.Unit)
	setStr("location", p.Location)
	setStr("condition", p.Condition)
	setStr("tool_number", p.ToolNumber)
	setStr("serial_number", p.SerialNumber)
	if p.LastCalibration != nil {
		m["last_calibration"] = *p.LastCalibration
	}
	if p.NextCalibration != nil {
		m["next_calibration"] = *p.NextCalibration
	}
	setStr("notes", p.Notes)
	setStr("measuring_tool_number", p.MeasuringToolNumber)
	setStr("sop", p.SOP)
	setStr("usage_period", p.UsagePeriod)
	return m
}

// Apply 把同一补丁作用到内存中的记录（本地镜像用）
func (p ItemPatch) Apply(it *InventoryItem) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&it.Name, p.Name)
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Available != nil {
		it.Available = *p.Available
	}
	setStr(&it.Image, p.Image)
	setStr(&it.Description, p.Description)
	setStr(&it.Brand, p.Brand)
	setStr(&it.Year, p.Year)
	setStr(&it.Unit, p.Unit)
	setStr(&it.Location, p.Location)
	setStr(&it.Condition, p.Condition)
	setStr(&it.ToolNumber, p.ToolNumber)
	setStr(&it.SerialNumber, p.SerialNumber)
	if p.LastCalibration != nil {
		t := *p.LastCalibration
		it.LastCalibration = &t
	}
	if p.NextCalibration != nil {
		t := *p.NextCalibration
		it.NextCalibration = &t
	}
	setStr(&it.Notes, p.Notes)
	setStr(&it.MeasuringToolNumber, p.MeasuringToolNumber)
	setStr(&it.SOP, p.SOP)
	setStr(&it.UsagePeriod, p.UsagePeriod)
}

func (p ItemPatch) Empty() bool { return len(p.Columns()) == 0 }

package model

type ProductLine struct {
	ID   uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Code string `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name string `gorm:"column:name;type:text;not null"`
}

func (ProductLine) TableName() string {
	return "product_lines"
}

type Machine struct {
	ID            uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	Code          string  `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name          string  `gorm:"column:name;type:text;not null"`
	ProductLineID *uint64 `gorm:"column:product_line_id;index"`
	Active        bool    `gorm:"column:active;not null"`
}

func (Machine) TableName() string {
	return "machines"
}

type DefectCode struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Code     string `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name     string `gorm:"column:name;type:text;not null"`
	Category string `gorm:"column:category;type:text;not null;index"`
}

func (DefectCode) TableName() string {
	return "defect_codes"
}

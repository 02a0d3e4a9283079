package model

import "time"

// Machine 机器台账记录
type Machine struct {
	ID            int64      `json:"id"`
	CodeMachine   string     `json:"code_machine"`
	TypeMachine   string     `json:"type_machine"`
	ModelMachine  string     `json:"model_machine"`
	Manufacturer  string     `json:"manufacturer"`
	SerialMachine string     `json:"serial_machine"`
	Price         int64      `json:"price"`
	RepairCost    int64      `json:"repair_cost"`
	DateOfUse     *time.Time `json:"date_of_use,omitempty"`
	NameLocation  string     `json:"name_location"`
	NameCategory  string     `json:"name_category"`
	CurrentStatus string     `json:"current_status"`
	BorrowStatus  string     `json:"borrow_status"`
	Supplier      string     `json:"supplier"`
	Note          string     `json:"note"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MachineInput 批量创建接口接收的一行（导入翻译后的内部字段）
type MachineInput struct {
	// Line 来源表格行号（表头为第 1 行），只在进程内使用，不参与传输
	Line int `json:"-"`

	CodeMachine   string     `json:"code_machine"`
	TypeMachine   string     `json:"type_machine" validate:"required"`
	ModelMachine  string     `json:"model_machine"`
	Manufacturer  string     `json:"manufacturer"`
	SerialMachine string     `json:"serial_machine" validate:"required"`
	Price         int64      `json:"price" validate:"gte=0"`
	RepairCost    int64      `json:"repair_cost" validate:"gte=0"`
	DateOfUse     *time.Time `json:"date_of_use,omitempty"`
	NameLocation  string     `json:"name_location"`
	NameCategory  string     `json:"name_category"`
	CurrentStatus string     `json:"current_status"`
	BorrowStatus  string     `json:"borrow_status"`
	Supplier      string     `json:"supplier"`
	Note          string     `json:"note"`
}

// MachinePatch 编辑接口允许修改的字段（nil 表示不修改）
type MachinePatch struct {
	CodeMachine   *string    `json:"code_machine"`
	TypeMachine   *string    `json:"type_machine" validate:"omitempty,min=1"`
	ModelMachine  *string    `json:"model_machine"`
	Manufacturer  *string    `json:"manufacturer"`
	Price         *int64     `json:"price" validate:"omitempty,gte=0"`
	RepairCost    *int64     `json:"repair_cost" validate:"omitempty,gte=0"`
	DateOfUse     *time.Time `json:"date_of_use"`
	NameLocation  *string    `json:"name_location"`
	CurrentStatus *string    `json:"current_status"`
	BorrowStatus  *string    `json:"borrow_status"`
	Supplier      *string    `json:"supplier"`
	Note          *string    `json:"note"`
}

// Pagination 列表分页信息
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination 计算总页数
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

package catalog

import "fmt"

// DefaultUserID is the user every built-in document command acts for.
const DefaultUserID = "123"

// Builtin returns the catalog shipped with apiprobe. Dynamic parameters are
// bound to producers from the given set, so tests can pass stubbed producers.
func Builtin(producers *ProducerSet) (*Catalog, error) {
	ping, err := producers.Param("timestamp", ProducerTimestamp)
	if err != nil {
		return nil, &MalformedError{
			Location: "common.ping.params[0]",
			Kind:     "param value",
			Name:     "timestamp",
			Reason:   fmt.Sprintf("cannot be bound: %v", err),
		}
	}
	return New(
		Category{
			Label: "公共",
			Key:   "common",
			APIs: []APIEntry{
				{Name: "ping", Description: "全局状态检查", Params: []ParamSpec{ping}},
			},
		},
		Category{
			Label: "WORD",
			Key:   "word",
			APIs: []APIEntry{
				{
					Name:        "addText",
					Description: "向文档追加文本",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("content", "Hello, PostMessage!"),
					},
				},
				{
					Name:        "getWord",
					Description: "获取文档内容",
					Params:      []ParamSpec{StaticParam("userId", DefaultUserID)},
				},
				{
					Name:        "deleteWord",
					Description: "删除文档内容",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("range", "0-10"),
					},
				},
				{
					Name:        "updateStyle",
					Description: "更新文档样式",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("style", "bold"),
					},
				},
			},
		},
		Category{
			Label: "PDF",
			Key:   "pdf",
			APIs: []APIEntry{
				{
					Name:        "exportPdf",
					Description: "导出为 PDF",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("watermark", "CONFIDENTIAL"),
					},
				},
			},
		},
		Category{
			Label: "EXCEL",
			Key:   "excel",
			APIs: []APIEntry{
				{
					Name:        "addSheet",
					Description: "新增工作表",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("name", "Sheet1"),
					},
				},
			},
		},
		Category{
			Label: "PPT",
			Key:   "ppt",
			APIs: []APIEntry{
				{
					Name:        "createSlide",
					Description: "创建幻灯片",
					Params: []ParamSpec{
						StaticParam("userId", DefaultUserID),
						StaticParam("theme", "dark"),
					},
				},
			},
		},
	)
}

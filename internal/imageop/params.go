package imageop

import (
	"fmt"
	"strconv"
)

// Params 操作参数表，未声明的键被忽略，缺失的键取默认值
type Params map[string]string

func (p Params) Str(name, def string) string {
	if v, ok := p[name]; ok && v != "" {
		return v
	}
	return def
}

func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (p Params) Float(name string, def float64) float64 {
	if v, ok := p[name]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name]; ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// 参数类型
const (
	KindInt    = "int"
	KindFloat  = "float"
	KindString = "string"
	KindBool   = "bool"
)

// ParamSpec 单个参数的声明：类型、范围或枚举
type ParamSpec struct {
	Name string
	Kind string
	Min  float64
	Max  float64
	Enum []string
}

// Validate 校验一个已出现的取值
func (s *ParamSpec) Validate(value string) error {
	switch s.Kind {
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return badParam(s.Name, "必须为整数")
		}
		if float64(n) < s.Min || float64(n) > s.Max {
			return badParam(s.Name, fmt.Sprintf("取值范围 [%g, %g]", s.Min, s.Max))
		}
	case KindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return badParam(s.Name, "必须为数字")
		}
		if f < s.Min || f > s.Max {
			return badParam(s.Name, fmt.Sprintf("取值范围 [%g, %g]", s.Min, s.Max))
		}
	case KindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return badParam(s.Name, "必须为布尔值")
		}
	case KindString:
		if len(s.Enum) == 0 {
			return nil
		}
		for _, e := range s.Enum {
			if value == e {
				return nil
			}
		}
		return badParam(s.Name, "取值不在允许范围内")
	}
	return nil
}

package imageop

import (
	"fmt"
	"log"
)

// TransformFunc 纯图片变换：参数 + 输入字节 -> 输出字节与 content type。
// 不做任何 I/O，不会被重试。
type TransformFunc func(p Params, primary, secondary []byte) ([]byte, string, error)

// Spec 注册表中一个操作的完整声明
type Spec struct {
	Name           string
	Label          string // 中文标签，用于描述与备注
	Params         []ParamSpec
	NeedsSecondary bool   // 必须携带第二张图片
	SecondaryField string // multipart 中第二张图片的字段名
	Transform      TransformFunc
}

// ValidateParams 校验出现了的已声明参数，未声明的键忽略
func (s *Spec) ValidateParams(p Params) error {
	for i := range s.Params {
		spec := &s.Params[i]
		if v, ok := p[spec.Name]; ok && v != "" {
			if err := spec.Validate(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Registry 闭合操作注册表，启动时构建后只读
type Registry struct {
	specs map[string]*Spec
	order []string
}

func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]*Spec)}
	for _, s := range builtinSpecs() {
		r.register(s)
	}
	return r
}

func (r *Registry) register(s *Spec) {
	if _, exists := r.specs[s.Name]; exists {
		log.Panicf("imageop: duplicate operation %q", s.Name)
	}
	r.specs[s.Name] = s
	r.order = append(r.order, s.Name)
}

// Get 查找操作声明
func (r *Registry) Get(name string) (*Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return s, nil
}

// Names 按注册顺序返回所有操作名
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Run 校验参数并执行变换，变换中的 panic 归为操作失败
func (r *Registry) Run(name string, p Params, primary, secondary []byte) (result []byte, contentType string, err error) {
	spec, err := r.Get(name)
	if err != nil {
		return nil, "", err
	}
	if err := spec.ValidateParams(p); err != nil {
		return nil, "", err
	}
	if spec.NeedsSecondary && len(secondary) == 0 {
		return nil, "", ErrSecondaryRequired
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[imageop] operation %s panicked: %v", name, rec)
			result, contentType = nil, ""
			err = fmt.Errorf("%w: %v", ErrOperationFailed, rec)
		}
	}()

	return spec.Transform(p, primary, secondary)
}

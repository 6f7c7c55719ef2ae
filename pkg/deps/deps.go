package deps

import (
	"reflect"

	"github.com/pingcap/log"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// Deps is a dependency injection container. The master builds its
// components by providing constructors and filling parameter structs.
type Deps struct {
	container *dig.Container
}

// NewDeps creates an empty Deps.
func NewDeps() *Deps {
	return &Deps{
		container: dig.New(),
	}
}

// Provide accepts a constructor and builds its value on demand.
func (d *Deps) Provide(constructor interface{}) error {
	return errors.Trace(d.container.Provide(constructor))
}

// Construct takes a function in the form of
// `func(arg1 Type1, arg2 Type2,...) (ret, error)`.
// The arguments are filled from the container.
func (d *Deps) Construct(fn interface{}) (interface{}, error) {
	fnTp := reflect.TypeOf(fn)
	if fnTp.NumOut() != 2 {
		log.Panic("Unexpected input type", zap.Any("type", fnTp))
	}

	var in, out []reflect.Type
	for i := 0; i < fnTp.NumIn(); i++ {
		in = append(in, fnTp.In(i))
	}
	out = append(out, fnTp.Out(1))

	invokeFnTp := reflect.FuncOf(in, out, false)

	var obj reflect.Value
	invokeFn := reflect.MakeFunc(invokeFnTp, func(args []reflect.Value) (results []reflect.Value) {
		retVals := reflect.ValueOf(fn).Call(args)
		obj = retVals[0]
		return retVals[1:]
	})

	if err := d.container.Invoke(invokeFn.Interface()); err != nil {
		return nil, errors.Trace(err)
	}

	return obj.Interface(), nil
}

// Fill injects dependencies into params, a pointer to a struct embedding dig.In.
func (d *Deps) Fill(params interface{}) error {
	invokeFnTp := reflect.FuncOf(
		[]reflect.Type{reflect.TypeOf(params).Elem()},
		[]reflect.Type{reflect.TypeOf(new(error)).Elem()},
		false)
	invokeFn := reflect.MakeFunc(invokeFnTp, func(args []reflect.Value) (results []reflect.Value) {
		defer func() {
			if v := recover(); v != nil {
				err := errors.Errorf("internal error: %v", v)
				results = []reflect.Value{reflect.ValueOf(&err).Elem()}
			}
		}()
		reflect.ValueOf(params).Elem().Set(args[0])
		return []reflect.Value{reflect.Zero(reflect.TypeOf(new(error)).Elem())}
	})
	if err := d.container.Invoke(invokeFn.Interface()); err != nil {
		return errors.Trace(err)
	}
	return nil
}

package stream

import "vin_appraisal/internal/results"

// Observer receives decoded events in arrival order.
type Observer interface {
	OnProgress(fraction float64, message string)
	OnLog(level, message string)
	OnResult(r results.Result)
	OnComplete(message string)
	OnError(message string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(fraction float64, message string)
	Log      func(level, message string)
	Result   func(r results.Result)
	Complete func(message string)
	Error    func(message string)
}

func (f ObserverFuncs) OnProgress(fraction float64, message string) {
	if f.Progress != nil {
		f.Progress(fraction, message)
	}
}

func (f ObserverFuncs) OnLog(level, message string) {
	if f.Log != nil {
		f.Log(level, message)
	}
}

func (f ObserverFuncs) OnResult(r results.Result) {
	if f.Result != nil {
		f.Result(r)
	}
}

func (f ObserverFuncs) OnComplete(message string) {
	if f.Complete != nil {
		f.Complete(message)
	}
}

func (f ObserverFuncs) OnError(message string) {
	if f.Error != nil {
		f.Error(message)
	}
}

package controller

type msg interface{ isControllerMsg() }

type decodeMsg struct{ text string }

type joinMsg struct {
	id    string
	reply chan joinResult
}

type joinResult struct {
	id  string
	err error
}

type newGameMsg struct{}

type leaveMsg struct{}

type cameraErrMsg struct{ err error }

type getViewMsg struct{ reply chan View }

// callMsg runs fn on the loop goroutine. Timer expiries arrive this way.
type callMsg struct{ fn func() }

func (decodeMsg) isControllerMsg()    {}
func (joinMsg) isControllerMsg()      {}
func (newGameMsg) isControllerMsg()   {}
func (leaveMsg) isControllerMsg()     {}
func (cameraErrMsg) isControllerMsg() {}
func (getViewMsg) isControllerMsg()   {}
func (callMsg) isControllerMsg()      {}

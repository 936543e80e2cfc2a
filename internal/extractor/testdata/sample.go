package sample

import "fmt"

// Version is the application version.
const Version = "1.0.0"

// Base is a base struct.
type Base struct {
	ID int
}

// User is a complex struct.
type User struct {
	Base
	Name string
}

type Handler interface {
	Handle(ctx string, data interface{}) (int, error)
}

// MyFunc is a function.
func MyFunc(a int, b string) bool {
	MyFunction("test")
	return true
}

func MyFunction(s string, rest ...int) {}

// MyMethod is a method.
func (u *User) MyMethod(msg string) {
	fmt.Println(msg)
}

// This comment is detached.


func Detached() {}

func (r *Remote) Ping() error { return nil }

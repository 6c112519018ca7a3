package main

import "github.com/kamilpajak/trxreport/cmd/trxreport"

func main() {
	trxreport.Execute()
}

package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient() *resty.Client {
	return resty.New().SetTimeout(30 * time.Second)
}

func doGet(url string) ([]byte, error) {
	resp, err := newClient().R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func doPostJSON(url string, payload interface{}) ([]byte, error) {
	resp, err := newClient().R().SetHeader("Content-Type", "application/json").SetBody(payload).Post(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func doDelete(url string) error {
	resp, err := newClient().R().Delete(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

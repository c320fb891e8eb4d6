package analytics

// Audit trail of everything an operator or the scheduler pushes into the
// system. Separate from the application log so the trail can be shipped
// and retained on its own.

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"

type ControlDataCollector interface {
	RecordOperation(processInstanceId int64, op string, status string)
	RecordCommand(processDefinitionId int64, commandType string, count int)
}

var controlCollector ControlDataCollector = noopCollector{}

func InitDataCollector(config DataCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return err
		}
		controlCollector = c
	}
	return nil
}

func RecordOperation(processInstanceId int64, op string, status string) {
	controlCollector.RecordOperation(processInstanceId, op, status)
}

func RecordCommand(processDefinitionId int64, commandType string, count int) {
	controlCollector.RecordCommand(processDefinitionId, commandType, count)
}

type noopCollector struct{}

func (noopCollector) RecordOperation(processInstanceId int64, op string, status string) {}
func (noopCollector) RecordCommand(processDefinitionId int64, commandType string, count int) {}
